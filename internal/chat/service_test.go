package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fkoehle/habit-coach/internal/ai"
	"github.com/fkoehle/habit-coach/internal/habit"
)

type recordingProvider struct {
	last  []ai.Message
	reply string
	err   error
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.last = append([]ai.Message(nil), messages...)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&habit.Habit{}, &Message{}, &Job{}))
	return db
}

func newTestService(t *testing.T, prov *recordingProvider, window int) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)

	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return prov, nil
	})

	habitSvc := habit.NewService(habit.NewRepo(db), time.UTC)
	svc := NewService(NewRepo(db), reg, habitSvc, "fake", "default", window)
	return svc, db
}

func TestSendMessage_WritesUserAndAssistant(t *testing.T) {
	prov := &recordingProvider{reply: "keep going!"}
	svc, db := newTestService(t, prov, 20)

	res, err := svc.SendMessage(context.Background(), 1, "Anna", "How am I doing?")
	require.NoError(t, err)
	assert.True(t, res.AssistantPersisted)
	assert.Equal(t, RoleAssistant, res.AssistantMessage.Role)
	assert.Equal(t, "keep going!", res.AssistantMessage.Content)

	var msgs []Message
	require.NoError(t, db.Where("user_id = ?", uint64(1)).Order("id ASC").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "How am I doing?", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "keep going!", msgs[1].Content)
}

func TestSendMessage_ContextCarriesHabits(t *testing.T) {
	prov := &recordingProvider{reply: "ok"}
	svc, db := newTestService(t, prov, 20)

	habitSvc := habit.NewService(habit.NewRepo(db), time.UTC)
	_, err := habitSvc.Create(context.Background(), 1, "Morning run", "", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), 1, "Anna", "Hello")
	require.NoError(t, err)

	require.NotEmpty(t, prov.last)
	head := prov.last[0]
	assert.Equal(t, "system", head.Role)
	assert.Contains(t, head.Content, "Anna")
	assert.Contains(t, head.Content, "Morning run")
}

func TestSendMessage_ProviderFailureKeepsUserMessage(t *testing.T) {
	prov := &recordingProvider{err: errors.New("upstream exploded")}
	svc, db := newTestService(t, prov, 20)

	res, err := svc.SendMessage(context.Background(), 1, "", "Hello?")
	require.NoError(t, err)

	// the reply is an in-line error notice, not an error
	assert.False(t, res.AssistantPersisted)
	assert.Equal(t, RoleAssistant, res.AssistantMessage.Role)
	assert.Equal(t, ErrorNotice, res.AssistantMessage.Content)

	// only the user message reached the store
	var msgs []Message
	require.NoError(t, db.Where("user_id = ?", uint64(1)).Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello?", msgs[0].Content)
}

func TestSendMessage_UsesContextWindow(t *testing.T) {
	prov := &recordingProvider{reply: "ok"}
	window := 3
	svc, _ := newTestService(t, prov, window)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		require.NoError(t, svc.repo.InsertMessage(ctx, &Message{
			UserID:  2,
			Role:    role,
			Content: "seed",
		}))
	}

	_, err := svc.SendMessage(ctx, 2, "", "new")
	require.NoError(t, err)

	// context message + window most recent conversation turns
	require.Len(t, prov.last, window+1)
	last := prov.last[len(prov.last)-1]
	assert.Equal(t, RoleUser, last.Role)
	assert.Equal(t, "new", last.Content)
}

func TestHistory_OrderedAscending(t *testing.T) {
	prov := &recordingProvider{reply: "ok"}
	svc, _ := newTestService(t, prov, 20)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, svc.repo.InsertMessage(ctx, &Message{
			UserID:  3,
			Role:    RoleUser,
			Content: content,
		}))
	}

	msgs, err := svc.History(ctx, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "third", msgs[2].Content)

	// scoped by user
	other, err := svc.History(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGenerateAssistantReplyAndInsert(t *testing.T) {
	prov := &recordingProvider{reply: "stay consistent"}
	svc, db := newTestService(t, prov, 20)
	ctx := context.Background()

	require.NoError(t, svc.repo.InsertMessage(ctx, &Message{
		UserID:  5,
		Role:    RoleUser,
		Content: "What should I focus on?",
	}))

	reply, msgID, err := svc.GenerateAssistantReplyAndInsert(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "stay consistent", reply)
	assert.NotZero(t, msgID)

	var stored Message
	require.NoError(t, db.First(&stored, msgID).Error)
	assert.Equal(t, RoleAssistant, stored.Role)
}

func TestEnqueueExchange_RetryWithSameKeyStoresNothing(t *testing.T) {
	prov := &recordingProvider{reply: "ok"}
	svc, db := newTestService(t, prov, 20)
	ctx := context.Background()

	key := "retry-123"
	j1, created, err := svc.EnqueueExchange(ctx, 7, "hi coach", &key)
	require.NoError(t, err)
	assert.True(t, created)

	j2, created, err := svc.EnqueueExchange(ctx, 7, "hi coach", &key)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, j1.ID, j2.ID)

	// the replay duplicates neither the job nor the user message
	var jobs []Job
	require.NoError(t, db.Where("user_id = ?", uint64(7)).Find(&jobs).Error)
	assert.Len(t, jobs, 1)
	var msgs []Message
	require.NoError(t, db.Where("user_id = ?", uint64(7)).Find(&msgs).Error)
	assert.Len(t, msgs, 1)
}

func TestEnqueueExchange_NoKeyAlwaysCreates(t *testing.T) {
	prov := &recordingProvider{reply: "ok"}
	svc, db := newTestService(t, prov, 20)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, created, err := svc.EnqueueExchange(ctx, 8, "hi coach", nil)
		require.NoError(t, err)
		assert.True(t, created)
	}

	var jobs []Job
	require.NoError(t, db.Where("user_id = ?", uint64(8)).Find(&jobs).Error)
	assert.Len(t, jobs, 2)
	var msgs []Message
	require.NoError(t, db.Where("user_id = ?", uint64(8)).Find(&msgs).Error)
	assert.Len(t, msgs, 2)
}

func TestEnqueueExchange_KeyScopedPerUser(t *testing.T) {
	prov := &recordingProvider{reply: "ok"}
	svc, _ := newTestService(t, prov, 20)
	ctx := context.Background()

	key := "shared-key"
	j1, created, err := svc.EnqueueExchange(ctx, 9, "hi", &key)
	require.NoError(t, err)
	require.True(t, created)

	j2, created, err := svc.EnqueueExchange(ctx, 10, "hi", &key)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, j1.ID, j2.ID)
}
