// File: internal/services/chat/fanout_test.go
package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyusef/go-chatstream/internal/domain"
)

func TestRecordUsageWritesRowAndBumpsQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.db.Create(&domain.User{ID: "user-1"}).Error)

	fanout := NewFanout(env.usage, env.users, nil, nil, env.catalog, noopLogger{})
	err := fanout.recordUsage(ctx, "user-1", "chat-1", "msg-1",
		"openai/gpt-4o-mini", "a short answer", 100)
	require.NoError(t, err)

	records, total, err := env.usage.FindByUserID(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, domain.OperationChat, records[0].OperationType)
	assert.Equal(t, 100, records[0].TotalTokens)
	assert.Greater(t, records[0].EstimatedCost, 0.0)

	user, err := env.users.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, user.MonthlyMessageCount)
}

func TestRecordUsageUnknownModelCostsZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.db.Create(&domain.User{ID: "user-1"}).Error)

	fanout := NewFanout(env.usage, env.users, nil, nil, env.catalog, noopLogger{})
	err := fanout.recordUsage(ctx, "user-1", "chat-1", "msg-1",
		"somevendor/obscure-model", "answer", 50)
	require.NoError(t, err)

	records, _, err := env.usage.FindByUserID(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, records[0].EstimatedCost)
}
