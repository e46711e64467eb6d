package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codewithmide/token-creator/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	return NewStore(conn)
}

func TestStoreLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.OperationRecord{
		OperationID: "op-1",
		Kind:        string(models.KindTransfer),
		Owner:       "OwnerAddr",
		Mint:        "MintAddr",
		Counterpart: "RecipientAddr",
		Amount:      1_500_000_000,
		Status:      models.StatusPending,
	}
	require.NoError(t, s.SaveOperation(ctx, rec))
	require.NoError(t, s.UpdateOperation(ctx, "op-1", models.StatusConfirmed, "sig-1", ""))

	got, err := s.GetByOperationID(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, "sig-1", got.TXSignature)
	assert.Equal(t, uint64(1_500_000_000), got.Amount)

	_, err = s.GetByOperationID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = s.UpdateOperation(ctx, "missing", models.StatusFailed, "", "x")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, s.Ping(ctx))
}

func TestListByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveOperation(ctx, &models.OperationRecord{
			OperationID: id, Kind: "burn", Owner: "alice", Status: models.StatusPending,
		}))
	}
	require.NoError(t, s.SaveOperation(ctx, &models.OperationRecord{
		OperationID: "z", Kind: "burn", Owner: "bob", Status: models.StatusPending,
	}))

	recs, err := s.ListByOwner(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].OperationID, "newest first")

	recs, err = s.ListByOwner(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "dsn")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestTruncateReason(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
}
