package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fkoehle/habit-coach/internal/ai"
	"github.com/fkoehle/habit-coach/internal/common"
	"github.com/fkoehle/habit-coach/internal/habit"
)

// ErrorNotice is the assistant-role message shown in-line when reply
// generation fails. It is returned to the client but never persisted.
const ErrorNotice = "The coach is not available right now. Please try again in a moment."

// Service maintains the per-user coach conversation and produces assistant
// replies with the user's habit data as context.
type Service struct {
	repo     *Repo
	registry *ai.Registry
	habits   *habit.Service
	provider string
	model    string
	window   int
	now      func() time.Time
}

func NewService(repo *Repo, registry *ai.Registry, habits *habit.Service, provider, model string, contextWindowSize int) *Service {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	return &Service{
		repo:     repo,
		registry: registry,
		habits:   habits,
		provider: provider,
		model:    model,
		window:   contextWindowSize,
		now:      time.Now,
	}
}

// History returns the user's full conversation oldest-first.
func (s *Service) History(ctx context.Context, userID uint64) ([]Message, error) {
	return s.repo.ListMessagesAsc(ctx, userID)
}

// SendResult carries both halves of an exchange. AssistantPersisted is false
// when the assistant message is an in-line error notice that only exists in
// the response.
type SendResult struct {
	UserMessage        Message
	AssistantMessage   Message
	AssistantPersisted bool
}

// SendMessage persists the user's message, generates a coach reply with the
// user's habits and recent conversation as context, and persists the reply.
// A provider failure after the user message is stored is not an error: the
// user message stays persisted and the result carries an unpersisted
// assistant-role notice instead.
func (s *Service) SendMessage(ctx context.Context, userID uint64, userName, content string) (*SendResult, error) {
	userMsg := &Message{
		UserID:  userID,
		Role:    RoleUser,
		Content: content,
	}
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	reply, err := s.generateReply(ctx, userID, userName)
	if err != nil {
		return &SendResult{
			UserMessage: *userMsg,
			AssistantMessage: Message{
				UserID:    userID,
				Role:      RoleAssistant,
				Content:   ErrorNotice,
				CreatedAt: s.now(),
			},
			AssistantPersisted: false,
		}, nil
	}

	assistantMsg := &Message{
		UserID:  userID,
		Role:    RoleAssistant,
		Content: reply,
	}
	if err := s.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return &SendResult{
			UserMessage: *userMsg,
			AssistantMessage: Message{
				UserID:    userID,
				Role:      RoleAssistant,
				Content:   ErrorNotice,
				CreatedAt: s.now(),
			},
			AssistantPersisted: false,
		}, nil
	}

	return &SendResult{
		UserMessage:        *userMsg,
		AssistantMessage:   *assistantMsg,
		AssistantPersisted: true,
	}, nil
}

// EnqueueExchange stores the user message together with a queued reply job in
// one transaction. A replay carrying the same idempotency key writes nothing
// and returns the existing job with created=false.
func (s *Service) EnqueueExchange(ctx context.Context, userID uint64, content string, idempotencyKey *string) (*Job, bool, error) {
	jobID, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}
	job := &Job{
		ID:             jobID,
		UserID:         userID,
		Prompt:         content,
		IdempotencyKey: idempotencyKey,
		Status:         JobQueued,
	}
	msg := &Message{
		UserID:  userID,
		Role:    RoleUser,
		Content: content,
	}
	return s.repo.CreateJobWithMessage(ctx, job, msg)
}

// GenerateAssistantReplyAndInsert produces and persists a coach reply from
// the already-stored conversation. Used by the job worker.
func (s *Service) GenerateAssistantReplyAndInsert(ctx context.Context, userID uint64) (string, uint64, error) {
	reply, err := s.generateReply(ctx, userID, "")
	if err != nil {
		return "", 0, err
	}
	assistantMsg := &Message{
		UserID:  userID,
		Role:    RoleAssistant,
		Content: reply,
	}
	if err := s.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return "", 0, err
	}
	return reply, assistantMsg.ID, nil
}

func (s *Service) generateReply(ctx context.Context, userID uint64, userName string) (string, error) {
	providerMsgs, err := s.buildProviderMessages(ctx, userID, userName)
	if err != nil {
		return "", err
	}
	provider, err := s.registry.Get(ctx, s.provider, s.model)
	if err != nil {
		return "", err
	}
	return provider.Chat(ctx, providerMsgs)
}

// buildProviderMessages prepends a coaching-context message (serialized
// habits) to the recent conversation window, oldest-first.
func (s *Service) buildProviderMessages(ctx context.Context, userID uint64, userName string) ([]ai.Message, error) {
	habits, err := s.habits.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	habitJSON, err := json.Marshal(habits)
	if err != nil {
		return nil, err
	}

	who := "the user"
	if userName != "" {
		who = userName
	}
	contextPrompt := fmt.Sprintf(
		"You are a personal habit coach for %s.\n"+
			"Current habits: %s\n"+
			"Use this data in your answer. Reply in a motivating, supportive tone "+
			"and give concrete, personalized advice based on the habits.",
		who, habitJSON,
	)

	recentDesc, err := s.repo.ListRecentMessagesDesc(ctx, userID, s.window)
	if err != nil {
		return nil, err
	}

	out := make([]ai.Message, 0, len(recentDesc)+1)
	out = append(out, ai.Message{Role: "system", Content: contextPrompt})
	for i := len(recentDesc) - 1; i >= 0; i-- {
		m := recentDesc[i]
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}
