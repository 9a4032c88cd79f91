package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/fkoehle/habit-coach/internal/common"
	"github.com/fkoehle/habit-coach/internal/models"
)

func (h *Handler) ListCoachMessages(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	msgs, err := h.Coach.History(c.Request.Context(), uid)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", uid).Msg("coach history failed")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to load the conversation")
		return
	}

	common.OK(c, gin.H{"messages": msgs})
}

type sendCoachMessageReq struct {
	Message string `json:"message" binding:"required"`
}

// SendCoachMessage handles a synchronous exchange: the user message is
// persisted first, then a reply is generated. When the reply fails, the
// response still carries the persisted user message plus an in-line
// assistant-role error notice that was not stored.
func (h *Handler) SendCoachMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendCoachMessageReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		common.Fail(c, http.StatusBadRequest, 10001, "a message is required")
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, uid).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	res, err := h.Coach.SendMessage(c.Request.Context(), uid, user.DisplayName, req.Message)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", uid).Msg("coach send failed before persist")
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to send the message")
		return
	}

	common.OK(c, gin.H{
		"user_message":        res.UserMessage,
		"assistant_message":   res.AssistantMessage,
		"assistant_persisted": res.AssistantPersisted,
	})
}

// SendCoachMessageAsync stores the user message and a job in one transaction
// and hands reply generation to the worker. An Idempotency-Key header makes
// retries safe: a replay returns the original job and stores nothing.
func (h *Handler) SendCoachMessageAsync(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "async replies are unavailable")
		return
	}

	var req sendCoachMessageReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		common.Fail(c, http.StatusBadRequest, 10001, "a message is required")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	j, created, err := h.Coach.EnqueueExchange(c.Request.Context(), uid, req.Message, idempoKeyPtr)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", uid).Msg("enqueue exchange failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), j.ID); err != nil {
			log.Error().Err(err).Uint64("user_id", uid).Str("job_id", j.ID).Msg("enqueue failed")
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{"job_id": j.ID})
}

func (h *Handler) GetCoachJob(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.Coach.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if j.UserID != uid {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40403, "job not found")
		return
	}

	common.OK(c, gin.H{"job": j})
}
