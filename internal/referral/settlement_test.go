package referral

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/menuahora/backend/internal/models"
	"github.com/menuahora/backend/internal/payouts"
	"github.com/menuahora/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Mocks: a noop pgx.Tx, an in-memory ledger that enforces the unique
// (source_event_id, referrer_account_id) key, balance counters, and a
// scriptable transfer client.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- ledger mock ---

type memLedger struct {
	mu      sync.Mutex
	keys    map[string]bool
	records []*models.SettlementRecord
}

func newMemLedger() *memLedger { return &memLedger{keys: make(map[string]bool)} }

func (m *memLedger) InsertTx(_ context.Context, _ pgx.Tx, rec *models.SettlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.SourceEventID + "|" + rec.ReferrerAccountID.String()
	if m.keys[key] {
		return repository.ErrDuplicateSettlement
	}
	m.keys[key] = true
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memLedger) MarkTransferredTx(_ context.Context, _ pgx.Tx, id uuid.UUID, transferID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			r.Status = models.SettlementTransferred
			r.TransferID = &transferID
			return nil
		}
	}
	return errors.New("record not found")
}

// --- balances mock ---

type memBalances struct {
	mu      sync.Mutex
	accrued map[uuid.UUID]int64
	settled map[uuid.UUID]int64
}

func newMemBalances() *memBalances {
	return &memBalances{accrued: make(map[uuid.UUID]int64), settled: make(map[uuid.UUID]int64)}
}

func (m *memBalances) AddAccruedCommissionTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accrued[id] += amount
	return m.accrued[id], nil
}

func (m *memBalances) AddSettledCommissionTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settled[id] += amount
	return m.settled[id], nil
}

// --- transfer client mock ---

type mockTransfers struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (m *mockTransfers) Transfer(_ context.Context, _ payouts.TransferRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return "", errors.New("provider unavailable")
	}
	return "tr_123", nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func onboardedReferrer() *models.Account {
	payoutID := "acct_payout_1"
	return &models.Account{ID: uuid.New(), HasAccess: true, PayoutAccountID: &payoutID, PayoutOnboarded: true}
}

func commission(eventID string, referrer *models.Account) *Commission {
	return &Commission{
		SourceEventID: eventID,
		Referrer:      referrer,
		Referred:      &models.Account{ID: uuid.New()},
		AmountCents:   3500,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSettleTransfersWhenOnboarded(t *testing.T) {
	ledger := newMemLedger()
	balances := newMemBalances()
	transfers := &mockTransfers{}
	s := NewSettler(mockPool{}, ledger, balances, transfers, nil)

	referrer := onboardedReferrer()
	if err := s.Settle(context.Background(), commission("evt_1", referrer)); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if len(ledger.records) != 1 {
		t.Fatalf("records: got %d, want 1", len(ledger.records))
	}
	rec := ledger.records[0]
	if rec.Status != models.SettlementTransferred {
		t.Errorf("status: got %q, want transferred", rec.Status)
	}
	if rec.TransferID == nil || *rec.TransferID != "tr_123" {
		t.Errorf("transfer id: got %v, want tr_123", rec.TransferID)
	}
	if balances.settled[referrer.ID] != 3500 {
		t.Errorf("settled balance: got %d, want 3500", balances.settled[referrer.ID])
	}
	if balances.accrued[referrer.ID] != 0 {
		t.Errorf("accrued balance should be untouched, got %d", balances.accrued[referrer.ID])
	}
}

func TestSettleAccruesOnTransferFailure(t *testing.T) {
	ledger := newMemLedger()
	balances := newMemBalances()
	transfers := &mockTransfers{fail: true}
	s := NewSettler(mockPool{}, ledger, balances, transfers, nil)

	referrer := onboardedReferrer()
	// A failed transfer must not surface as a processing failure.
	if err := s.Settle(context.Background(), commission("evt_1", referrer)); err != nil {
		t.Fatalf("transfer failure must be absorbed, got: %v", err)
	}

	if len(ledger.records) != 1 {
		t.Fatalf("records: got %d, want 1", len(ledger.records))
	}
	if ledger.records[0].Status != models.SettlementAccrued {
		t.Errorf("status: got %q, want accrued", ledger.records[0].Status)
	}
	if balances.accrued[referrer.ID] != 3500 {
		t.Errorf("accrued balance: got %d, want 3500", balances.accrued[referrer.ID])
	}
	if balances.settled[referrer.ID] != 0 {
		t.Errorf("settled balance should be untouched, got %d", balances.settled[referrer.ID])
	}
}

func TestSettleSkipsTransferWithoutPayoutAccount(t *testing.T) {
	ledger := newMemLedger()
	balances := newMemBalances()
	transfers := &mockTransfers{}
	s := NewSettler(mockPool{}, ledger, balances, transfers, nil)

	referrer := &models.Account{ID: uuid.New(), HasAccess: true} // no payout account
	if err := s.Settle(context.Background(), commission("evt_1", referrer)); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if transfers.calls != 0 {
		t.Errorf("transfer attempted %d times for a referrer with no payout account", transfers.calls)
	}
	if ledger.records[0].Status != models.SettlementAccrued {
		t.Errorf("status: got %q, want accrued", ledger.records[0].Status)
	}
	if balances.accrued[referrer.ID] != 3500 {
		t.Errorf("accrued balance: got %d, want 3500", balances.accrued[referrer.ID])
	}
}

func TestSettleNotOnboardedSkipsTransfer(t *testing.T) {
	ledger := newMemLedger()
	balances := newMemBalances()
	transfers := &mockTransfers{}
	s := NewSettler(mockPool{}, ledger, balances, transfers, nil)

	payoutID := "acct_payout_1"
	referrer := &models.Account{ID: uuid.New(), HasAccess: true, PayoutAccountID: &payoutID, PayoutOnboarded: false}
	if err := s.Settle(context.Background(), commission("evt_1", referrer)); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if transfers.calls != 0 {
		t.Error("transfer must not be attempted before onboarding is confirmed")
	}
	if balances.accrued[referrer.ID] != 3500 {
		t.Errorf("accrued balance: got %d, want 3500", balances.accrued[referrer.ID])
	}
}

// Redelivery scenario: the same payment event settles exactly once. The
// referrer has no payout account, so the expected outcome is one accrued
// record of 3500 and an accrued balance of 3500, not 7000.
func TestSettleDuplicateEventSettlesOnce(t *testing.T) {
	ledger := newMemLedger()
	balances := newMemBalances()
	transfers := &mockTransfers{}
	s := NewSettler(mockPool{}, ledger, balances, transfers, nil)

	referrer := &models.Account{ID: uuid.New(), HasAccess: true}
	ctx := context.Background()

	if err := s.Settle(ctx, commission("evt_dup", referrer)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	// Redelivery is success, not an error.
	if err := s.Settle(ctx, commission("evt_dup", referrer)); err != nil {
		t.Fatalf("redelivery must be treated as already handled, got: %v", err)
	}

	if len(ledger.records) != 1 {
		t.Fatalf("records: got %d, want exactly 1", len(ledger.records))
	}
	if ledger.records[0].AmountCents != 3500 {
		t.Errorf("amount: got %d, want 3500", ledger.records[0].AmountCents)
	}
	if balances.accrued[referrer.ID] != 3500 {
		t.Errorf("accrued balance: got %d, want 3500 (not doubled)", balances.accrued[referrer.ID])
	}
}

// A duplicate for an onboarded referrer must not reach the transfer API a
// second time.
func TestSettleDuplicateNeverRetransfers(t *testing.T) {
	ledger := newMemLedger()
	balances := newMemBalances()
	transfers := &mockTransfers{}
	s := NewSettler(mockPool{}, ledger, balances, transfers, nil)

	referrer := onboardedReferrer()
	ctx := context.Background()

	if err := s.Settle(ctx, commission("evt_dup", referrer)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := s.Settle(ctx, commission("evt_dup", referrer)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if transfers.calls != 1 {
		t.Errorf("transfer calls: got %d, want 1", transfers.calls)
	}
	if balances.settled[referrer.ID] != 3500 {
		t.Errorf("settled balance: got %d, want 3500", balances.settled[referrer.ID])
	}
}
