package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fkoehle/habit-coach/internal/common"
	"github.com/fkoehle/habit-coach/internal/habit"
)

const achievementsCacheTTL = 60 * time.Second

type createHabitReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handler) CreateHabit(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createHabitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "a habit name is required")
		return
	}

	created, err := h.Habits.Create(c.Request.Context(), uid, req.Name, req.Description, req.Category)
	if err != nil {
		if errors.Is(err, habit.ErrNameRequired) {
			common.Fail(c, http.StatusBadRequest, 10001, "a habit name is required")
			return
		}
		log.Error().Err(err).Uint64("user_id", uid).Msg("create habit failed")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to create habit")
		return
	}

	h.dropAchievementsCache(c, uid)
	common.OK(c, created)
}

func (h *Handler) ListHabits(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	habits, err := h.Habits.List(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", uid).Msg("list habits failed")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to load habits")
		return
	}

	common.OK(c, gin.H{"habits": habits})
}

func (h *Handler) ToggleHabit(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	updated, err := h.Habits.Toggle(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, habit.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "habit not found")
			return
		}
		log.Error().Err(err).Uint64("user_id", uid).Str("habit_id", c.Param("id")).Msg("toggle failed")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to update habit")
		return
	}

	h.dropAchievementsCache(c, uid)
	common.OK(c, updated)
}

func (h *Handler) DeleteHabit(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if err := h.Habits.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		if errors.Is(err, habit.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "habit not found")
			return
		}
		log.Error().Err(err).Uint64("user_id", uid).Str("habit_id", c.Param("id")).Msg("delete failed")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to delete habit")
		return
	}

	h.dropAchievementsCache(c, uid)
	common.OK(c, gin.H{"deleted": true})
}

// HabitCalendar renders the month grid for one habit. Defaults to the
// current month; months after the current one are rejected.
func (h *Handler) HabitCalendar(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	now := time.Now().In(h.Cfg.Location())
	year := now.Year()
	month := int(now.Month())
	if v := c.Query("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			year = n
		}
	}
	if v := c.Query("month"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			month = n
		}
	}
	if month < 1 || month > 12 {
		common.Fail(c, http.StatusBadRequest, 10005, "month must be between 1 and 12")
		return
	}

	grid, err := h.Habits.Calendar(c.Request.Context(), uid, c.Param("id"), year, time.Month(month))
	if err != nil {
		if errors.Is(err, habit.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "habit not found")
			return
		}
		if errors.Is(err, habit.ErrFutureMonth) {
			common.Fail(c, http.StatusBadRequest, 10006, "cannot view months after the current one")
			return
		}
		log.Error().Err(err).Uint64("user_id", uid).Msg("calendar failed")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to build calendar")
		return
	}

	common.OK(c, grid)
}

// Achievements serves the badge list, cached briefly per user. A cache miss
// or an unreachable cache falls through to a fresh computation.
func (h *Handler) Achievements(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if cached, hit, err := h.Redis.GetAchievements(c.Request.Context(), uid); err == nil && hit {
		common.OK(c, gin.H{"achievements": cached})
		return
	}

	achs, err := h.Habits.AchievementsFor(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", uid).Msg("achievements failed")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to compute achievements")
		return
	}

	if err := h.Redis.SetAchievements(c.Request.Context(), uid, achs, achievementsCacheTTL); err != nil {
		log.Warn().Err(err).Uint64("user_id", uid).Msg("achievements cache write failed")
	}

	common.OK(c, gin.H{"achievements": achs})
}

func (h *Handler) dropAchievementsCache(c *gin.Context, uid uint64) {
	if err := h.Redis.InvalidateAchievements(c.Request.Context(), uid); err != nil {
		log.Warn().Err(err).Uint64("user_id", uid).Msg("achievements cache invalidation failed")
	}
}
