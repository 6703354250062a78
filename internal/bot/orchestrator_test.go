package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungkas/warungkas/internal/debounce"
	"github.com/warungkas/warungkas/internal/intent"
	"github.com/warungkas/warungkas/internal/kv"
	"github.com/warungkas/warungkas/internal/model"
	"github.com/warungkas/warungkas/internal/ratelimit"
	"github.com/warungkas/warungkas/internal/service"
	"github.com/warungkas/warungkas/internal/session"
)

// fakeStorage is an in-memory service.Storage.
type fakeStorage struct {
	mu       sync.Mutex
	users    map[string]*model.User
	saved    []model.Transaction
	failSave bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{users: make(map[string]*model.User)}
}

func (f *fakeStorage) SaveTransaction(_ context.Context, txn *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("database unreachable")
	}
	f.saved = append(f.saved, *txn)
	return nil
}

func (f *fakeStorage) GetTransactionsByPeriod(context.Context, string, time.Time, time.Time) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Transaction(nil), f.saved...), nil
}

func (f *fakeStorage) SumByType(_ context.Context, userID string, txnType model.TransactionType, _, _ time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, txn := range f.saved {
		if txn.UserID == userID && txn.Type == txnType {
			total += txn.Amount
		}
	}
	return total, nil
}

func (f *fakeStorage) GetCategoriesByType(_ context.Context, txnType model.TransactionType) ([]model.Category, error) {
	if txnType == model.TypeIncome {
		return []model.Category{{ID: 1, Name: "Jasa", Type: txnType, IsActive: true}}, nil
	}
	return []model.Category{{ID: 2, Name: "Operasional", Type: txnType, IsActive: true}}, nil
}

func (f *fakeStorage) GetUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeStorage) UpsertUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStorage) Migrate(context.Context) error { return nil }
func (f *fakeStorage) Close() error                  { return nil }

// fakeMessenger records outbound replies.
type fakeMessenger struct {
	mu      sync.Mutex
	texts   []string
	buttons [][]service.Button
}

func (f *fakeMessenger) SendText(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendButtons(_ context.Context, _, text string, buttons []service.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.buttons = append(f.buttons, buttons)
	return nil
}

func (f *fakeMessenger) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.texts)
	return f.texts[len(f.texts)-1]
}

type fixture struct {
	orch      *Orchestrator
	storage   *fakeStorage
	messenger *fakeMessenger
	sessions  *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := kv.NewMemoryStore()
	classifier := intent.New(intent.DefaultCatalog(), intent.LevenshteinScorer{}, intent.Config{})
	sessions := session.NewManager(store, session.Config{})
	limiter := ratelimit.New(store, ratelimit.Config{MaxPerWindow: 100})
	guard := debounce.New(store, 3*time.Second)
	storage := newFakeStorage()
	messenger := &fakeMessenger{}

	return &fixture{
		orch:      New(classifier, sessions, limiter, guard, storage, messenger),
		storage:   storage,
		messenger: messenger,
		sessions:  sessions,
	}
}

func textEvent(text string) model.Event {
	return model.Event{ConversationID: "chat1", UserID: "u1", Text: text, ReceivedAt: time.Now()}
}

func buttonEvent(elementID string) model.Event {
	return model.Event{ConversationID: "chat1", UserID: "u1", ElementID: elementID, IsButton: true, ReceivedAt: time.Now()}
}

func TestHandleEvent_FullEntryFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat penjualan")))
	assert.Equal(t, msgAskCategory, f.messenger.lastText(t))

	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent("cat:Jasa")))
	assert.Equal(t, msgAskAmount, f.messenger.lastText(t))

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("500.000")))
	assert.Equal(t, msgAskDescription, f.messenger.lastText(t))

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("servis motor")))
	assert.Contains(t, f.messenger.lastText(t), "Jasa")
	assert.Contains(t, f.messenger.lastText(t), "Rp500.000")

	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnConfirm)))

	require.Len(t, f.storage.saved, 1)
	txn := f.storage.saved[0]
	assert.Equal(t, "u1", txn.UserID)
	assert.Equal(t, model.TypeIncome, txn.Type)
	assert.Equal(t, "Jasa", txn.Category)
	assert.Equal(t, float64(500000), txn.Amount)
	assert.Equal(t, "servis motor", txn.Description)
	assert.NotEmpty(t, txn.ID)

	assert.Nil(t, f.sessions.Get(ctx, "u1"), "session is cleared after commit")
}

func TestHandleEvent_TypoAutoExecutes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// One missing letter is still confident enough to auto-execute.
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat penjualn")))
	assert.Equal(t, msgAskCategory, f.messenger.lastText(t))
}

func TestHandleEvent_UnrecognizedFallsBackToHelp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("xyzzy quux foobar")))
	assert.Equal(t, msgHelp, f.messenger.lastText(t))
}

func TestHandleEvent_LowConfidenceSuggests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// "catat" alone scores below both the fuzzy accept threshold and the
	// auto-execute threshold but above the suggestion floor.
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat")))
	assert.Equal(t, msgSuggest, f.messenger.lastText(t))
	require.NotEmpty(t, f.messenger.buttons)

	last := f.messenger.buttons[len(f.messenger.buttons)-1]
	require.NotEmpty(t, last)

	// Tapping a suggestion executes its intent.
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(last[0].Data)))
	assert.Equal(t, msgAskCategory, f.messenger.lastText(t))
}

func TestHandleEvent_DebounceSuppressesDoubleTap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat penjualan")))
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent("cat:Jasa")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("500000")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("-")))

	before := len(f.messenger.texts)
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnConfirm)))
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnConfirm))) // double tap

	assert.Len(t, f.storage.saved, 1, "double tap must not commit twice")
	assert.Equal(t, before+1, len(f.messenger.texts), "suppressed tap sends nothing")
}

func TestHandleEvent_RateLimitRejects(t *testing.T) {
	ctx := context.Background()

	store := kv.NewMemoryStore()
	classifier := intent.New(intent.DefaultCatalog(), intent.LevenshteinScorer{}, intent.Config{})
	sessions := session.NewManager(store, session.Config{})
	limiter := ratelimit.New(store, ratelimit.Config{MaxPerWindow: 1})
	guard := debounce.New(store, 3*time.Second)
	storage := newFakeStorage()
	messenger := &fakeMessenger{}
	orch := New(classifier, sessions, limiter, guard, storage, messenger)

	require.NoError(t, orch.HandleEvent(ctx, textEvent("bantuan")))
	require.NoError(t, orch.HandleEvent(ctx, textEvent("bantuan")))

	assert.Contains(t, messenger.lastText(t), "Terlalu banyak pesan")
}

func TestHandleEvent_EditAmountThenConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat penjualan")))
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent("cat:Jasa")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("500000")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("-")))

	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnEditPrefix+fieldAmount)))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("750000")))
	assert.Contains(t, f.messenger.lastText(t), "Rp750.000")

	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnConfirm)))
	require.Len(t, f.storage.saved, 1)
	assert.Equal(t, float64(750000), f.storage.saved[0].Amount)
}

func TestHandleEvent_CancelEditRestoresValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat penjualan")))
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent("cat:Jasa")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("500000")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("-")))

	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnEditPrefix+fieldAmount)))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("batal edit")))
	assert.Contains(t, f.messenger.lastText(t), "Rp500.000", "cancelled edit keeps the original amount")
}

func TestHandleEvent_CommitFailureSavesPartialAndRetryRecovers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat penjualan")))
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent("cat:Jasa")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("500000")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("-")))

	f.storage.failSave = true
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnConfirm)))
	assert.Equal(t, msgCommitFailed, f.messenger.lastText(t))
	assert.True(t, f.sessions.HasRecoverableContext(ctx, "u1"))

	f.storage.failSave = false
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnRetry)))

	require.Len(t, f.storage.saved, 1)
	assert.Equal(t, float64(500000), f.storage.saved[0].Amount)
	assert.False(t, f.sessions.HasRecoverableContext(ctx, "u1"), "partial data cleared after recovery")
}

func TestHandleEvent_RecoveryOfferedOutsideWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.sessions.SavePartialData(ctx, "u1", &model.PartialTransaction{
		TransactionType: model.TypeIncome,
		Category:        "Jasa",
		Amount:          500000,
	}))

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("lihat saldo")))
	assert.Equal(t, msgRecoveryFound, f.messenger.lastText(t))

	// Resuming re-enters at the first missing field (description).
	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnResume)))
	assert.Equal(t, msgAskDescription, f.messenger.lastText(t))
}

func TestHandleEvent_DiscardClearsPartialData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.sessions.SavePartialData(ctx, "u1", &model.PartialTransaction{Amount: 100}))

	require.NoError(t, f.orch.HandleEvent(ctx, buttonEvent(btnDiscard)))
	assert.Equal(t, msgDiscarded, f.messenger.lastText(t))
	assert.False(t, f.sessions.HasRecoverableContext(ctx, "u1"))
}

func TestHandleEvent_CancelMidWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("catat penjualan")))
	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("batal")))

	assert.Equal(t, msgCancelled, f.messenger.lastText(t))
	assert.Nil(t, f.sessions.Get(ctx, "u1"))
}

func TestHandleEvent_ViewBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.storage.saved = []model.Transaction{
		{UserID: "u1", Type: model.TypeIncome, Amount: 750000},
		{UserID: "u1", Type: model.TypeExpense, Amount: 250000},
	}

	require.NoError(t, f.orch.HandleEvent(ctx, textEvent("lihat saldo")))
	assert.Contains(t, f.messenger.lastText(t), "Rp500.000")
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{input: "500000", want: 500000, ok: true},
		{input: "500.000", want: 500000, ok: true},
		{input: "500,000", want: 500000, ok: true},
		{input: "Rp500.000", want: 500000, ok: true},
		{input: " 42 ", want: 42, ok: true},
		{input: "0", ok: false},
		{input: "-100", ok: false},
		{input: "banyak", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
