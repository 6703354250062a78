package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungkas/warungkas/internal/common"
	"github.com/warungkas/warungkas/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestMigrate_SeedsDefaultCategories(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	income, err := s.GetCategoriesByType(ctx, model.TypeIncome)
	require.NoError(t, err)
	assert.NotEmpty(t, income)

	expense, err := s.GetCategoriesByType(ctx, model.TypeExpense)
	require.NoError(t, err)
	assert.NotEmpty(t, expense)

	for _, cat := range income {
		assert.Equal(t, model.TypeIncome, cat.Type)
		assert.True(t, cat.IsActive)
	}
}

func TestSaveTransaction(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: "u1", Name: "Budi"}))

	txn := &model.Transaction{
		ID:          "txn-1",
		UserID:      "u1",
		Type:        model.TypeIncome,
		Category:    "Jasa",
		Amount:      500000,
		Description: "servis motor",
	}
	require.NoError(t, s.SaveTransaction(ctx, txn))
	assert.False(t, txn.CreatedAt.IsZero(), "save stamps CreatedAt")

	txns, err := s.GetTransactionsByPeriod(ctx, "u1",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "txn-1", txns[0].ID)
	assert.Equal(t, float64(500000), txns[0].Amount)
	assert.Equal(t, "servis motor", txns[0].Description)
}

func TestSaveTransaction_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: "u1"}))

	txn := &model.Transaction{
		ID: "txn-dup", UserID: "u1", Type: model.TypeIncome, Category: "Jasa", Amount: 100,
	}
	require.NoError(t, s.SaveTransaction(ctx, txn))

	err := s.SaveTransaction(ctx, txn)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestSaveTransaction_Validation(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	tests := []struct {
		txn  *model.Transaction
		name string
	}{
		{name: "nil transaction", txn: nil},
		{name: "missing id", txn: &model.Transaction{UserID: "u1", Type: model.TypeIncome, Amount: 1}},
		{name: "missing user", txn: &model.Transaction{ID: "t", Type: model.TypeIncome, Amount: 1}},
		{name: "bad type", txn: &model.Transaction{ID: "t", UserID: "u1", Type: "sideways", Amount: 1}},
		{name: "zero amount", txn: &model.Transaction{ID: "t", UserID: "u1", Type: model.TypeIncome}},
		{name: "negative amount", txn: &model.Transaction{ID: "t", UserID: "u1", Type: model.TypeIncome, Amount: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.SaveTransaction(ctx, tt.txn))
		})
	}
}

func TestSumByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: "u1"}))

	now := time.Now()
	save := func(id string, txnType model.TransactionType, amount float64) {
		require.NoError(t, s.SaveTransaction(ctx, &model.Transaction{
			ID: id, UserID: "u1", Type: txnType, Category: "Jasa", Amount: amount, CreatedAt: now,
		}))
	}
	save("t1", model.TypeIncome, 500000)
	save("t2", model.TypeIncome, 250000)
	save("t3", model.TypeExpense, 100000)

	income, err := s.SumByType(ctx, "u1", model.TypeIncome, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, float64(750000), income)

	expense, err := s.SumByType(ctx, "u1", model.TypeExpense, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, float64(100000), expense)

	// Other users see nothing.
	other, err := s.SumByType(ctx, "u2", model.TypeIncome, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestUsers_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	user, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, user, "unknown user returns nil")

	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: "u1", Name: "Budi"}))

	user, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Budi", user.Name)
	assert.Equal(t, model.RoleStaff, user.Role, "role defaults to staff")

	// Upsert updates in place.
	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: "u1", Name: "Budi Santoso", Role: model.RoleOwner}))

	user, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Budi Santoso", user.Name)
	assert.Equal(t, model.RoleOwner, user.Role)
}
