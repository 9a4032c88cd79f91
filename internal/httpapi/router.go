package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fkoehle/habit-coach/internal/auth"
	"github.com/fkoehle/habit-coach/internal/common"
	"github.com/fkoehle/habit-coach/internal/config"
	"github.com/fkoehle/habit-coach/internal/httpapi/handlers"
	"github.com/fkoehle/habit-coach/internal/httpapi/middleware"
	"github.com/fkoehle/habit-coach/internal/store/rabbitmq"
	"github.com/fkoehle/habit-coach/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, broker *auth.Broker, rabbit *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, rds, broker, rabbit)

	r.GET("/ping", h.Ping)

	// identity
	r.POST("/users", h.Register)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret, rds))

	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/me", h.Me)
	authGroup.PUT("/me/email", h.ChangeEmail)
	authGroup.PUT("/me/password", h.ChangePassword)

	// habits
	authGroup.POST("/habits", h.CreateHabit)
	authGroup.GET("/habits", h.ListHabits)
	authGroup.POST("/habits/:id/toggle", h.ToggleHabit)
	authGroup.DELETE("/habits/:id", h.DeleteHabit)
	authGroup.GET("/habits/:id/calendar", h.HabitCalendar)
	authGroup.GET("/achievements", h.Achievements)

	// coach chat
	authGroup.GET("/coach/messages", h.ListCoachMessages)
	authGroup.POST("/coach/messages", h.SendCoachMessage)
	authGroup.POST("/coach/messages/async", h.SendCoachMessageAsync)
	authGroup.GET("/coach/jobs/:job_id", h.GetCoachJob)

	return r
}
