package handlers

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fkoehle/habit-coach/internal/ai"
	"github.com/fkoehle/habit-coach/internal/auth"
	"github.com/fkoehle/habit-coach/internal/chat"
	"github.com/fkoehle/habit-coach/internal/config"
	"github.com/fkoehle/habit-coach/internal/habit"
	"github.com/fkoehle/habit-coach/internal/store/rabbitmq"
	"github.com/fkoehle/habit-coach/internal/store/redisstore"
)

type Handler struct {
	DB     *gorm.DB
	Cfg    config.Config
	Redis  *redisstore.Store
	Broker *auth.Broker
	Habits *habit.Service
	Coach  *chat.Service

	// Rabbit is nil when the broker is unreachable; the async send endpoint
	// degrades to 503 in that case.
	Rabbit *rabbitmq.Publisher
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, broker *auth.Broker, rabbit *rabbitmq.Publisher) *Handler {
	habitSvc := habit.NewService(habit.NewRepo(db), cfg.Location())

	reg := ai.NewRegistry()
	switch strings.ToLower(cfg.AIProvider) {
	case "", "gemini":
		reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
			m := strings.TrimSpace(model)
			if m == "" {
				m = cfg.GeminiModel
			}
			return ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, m), nil
		})
	default:
		panic(fmt.Sprintf("unsupported AI_PROVIDER=%q", cfg.AIProvider))
	}

	coachSvc := chat.NewService(chat.NewRepo(db), reg, habitSvc, "gemini", cfg.GeminiModel, cfg.ChatContextWindowSize)

	return &Handler{
		DB:     db,
		Cfg:    cfg,
		Redis:  rds,
		Broker: broker,
		Habits: habitSvc,
		Coach:  coachSvc,
		Rabbit: rabbit,
	}
}
