package dao_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"todo-agent-backend/dao"
	"todo-agent-backend/dao/daotest"
	"todo-agent-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateSessionIsIdempotentUnderConcurrency(t *testing.T) {
	daotest.Setup(t)
	ctx := context.Background()
	alice := daotest.CreateUser(t, "alice")

	const workers = 8
	ids := make([]uint, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			session, err := dao.GetOrCreateSession(ctx, alice.ID, "tok-1")
			errs[i] = err
			if session != nil {
				ids[i] = session.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, dao.DB.Model(&model.ChatSession{}).
		Where("user_id = ? AND session_token = ?", alice.ID, "tok-1").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSessionTokenIsScopedPerUser(t *testing.T) {
	daotest.Setup(t)
	ctx := context.Background()
	alice := daotest.CreateUser(t, "alice")
	bob := daotest.CreateUser(t, "bob")

	aliceSession, err := dao.GetOrCreateSession(ctx, alice.ID, "shared-token")
	require.NoError(t, err)
	bobSession, err := dao.GetOrCreateSession(ctx, bob.ID, "shared-token")
	require.NoError(t, err)
	require.NotEqual(t, aliceSession.ID, bobSession.ID)

	_, err = dao.AppendMessage(ctx, aliceSession.ID, model.SenderUser, "alice secret", nil)
	require.NoError(t, err)

	bobHistory, err := dao.LoadRecentHistory(ctx, bobSession.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, bobHistory)

	_, err = dao.GetSessionByToken(ctx, bob.ID, "missing")
	assert.ErrorIs(t, err, dao.ErrSessionNotFound)
}

func TestLoadRecentHistoryWindow(t *testing.T) {
	daotest.Setup(t)
	ctx := context.Background()
	alice := daotest.CreateUser(t, "alice")
	session, err := dao.GetOrCreateSession(ctx, alice.ID, "tok")
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderAssistant
		}
		_, err := dao.AppendMessage(ctx, session.ID, sender, fmt.Sprintf("msg-%02d", i), nil)
		require.NoError(t, err)
	}

	history, err := dao.LoadRecentHistory(ctx, session.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 10)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("msg-%02d", 15+i), msg.Content)
	}

	all, err := dao.GetMessagesBySessionID(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	daotest.Setup(t)
	ctx := context.Background()
	alice := daotest.CreateUser(t, "alice")
	session, err := dao.GetOrCreateSession(ctx, alice.ID, "tok")
	require.NoError(t, err)
	_, err = dao.AppendMessage(ctx, session.ID, model.SenderUser, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, dao.DeleteSession(ctx, alice.ID, "tok"))

	var count int64
	require.NoError(t, dao.DB.Model(&model.ChatMessage{}).Where("session_id = ?", session.ID).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, dao.DeleteSession(ctx, alice.ID, "tok"), dao.ErrSessionNotFound)
}
