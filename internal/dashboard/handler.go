package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/billing"
	"github.com/menuahora/backend/internal/middleware"
	"github.com/menuahora/backend/internal/models"
)

// AccountStore is the account repository subset the dashboard needs.
// GetByID returns (nil, nil) when no account matches.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetPayoutAccountID(ctx context.Context, id uuid.UUID, payoutAccountID string) error
}

// SettlementReader lists the caller's settlement history.
type SettlementReader interface {
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*models.SettlementRecord, error)
}

type Handler struct {
	accounts    AccountStore
	settlements SettlementReader
	log         *slog.Logger
	now         func() time.Time
}

func NewHandler(accounts AccountStore, settlements SettlementReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accounts: accounts, settlements: settlements, log: log, now: time.Now}
}

// GetMe handles GET /api/v1/account/me. Status is projected fresh from the
// stored fields on every call; a stored "expired" value is never trusted
// because trials lapse purely by clock passage.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	acct, err := h.accounts.GetByID(r.Context(), ident.AccountID)
	if err != nil {
		h.log.Error("get account failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if acct == nil {
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
		return
	}

	status, daysLeft := billing.Project(acct.HasAccess, acct.IsOnTrial, acct.TrialEndAt, h.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                             acct.ID,
		"email":                          acct.Email,
		"username":                       acct.Username,
		"status":                         status,
		"days_left":                      daysLeft,
		"trial_end_at":                   acct.TrialEndAt,
		"referred_by_code":               acct.ReferredByCode,
		"payout_onboarded":               acct.PayoutOnboarded,
		"accrued_commission_cents":       acct.AccruedCommissionCents,
		"total_settled_commission_cents": acct.TotalSettledCommissionCents,
	})
}

// ListSettlements handles GET /api/v1/referrals/settlements — the balance
// display surface where absorbed settlement outcomes become visible.
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	records, err := h.settlements.ListByReferrer(r.Context(), ident.AccountID)
	if err != nil {
		h.log.Error("list settlements failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*models.SettlementRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

type attachPayoutAccountRequest struct {
	PayoutAccountID string `json:"payout_account_id"`
}

// AttachPayoutAccount handles POST /api/v1/payouts/account. It records the
// caller's connected payout account reference, normally obtained from the
// provider's hosted onboarding flow. The onboarded flag stays false until the
// provider's payout_account.updated event confirms both verification flags.
func (h *Handler) AttachPayoutAccount(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req attachPayoutAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PayoutAccountID == "" {
		http.Error(w, `{"error":"payout_account_id is required"}`, http.StatusBadRequest)
		return
	}
	if err := h.accounts.SetPayoutAccountID(r.Context(), ident.AccountID, req.PayoutAccountID); err != nil {
		h.log.Error("attach payout account failed", "account_id", ident.AccountID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	h.log.Info("payout account attached", "account_id", ident.AccountID, "payout_account_id", req.PayoutAccountID)
	writeJSON(w, http.StatusOK, map[string]any{"payout_account_id": req.PayoutAccountID, "payout_onboarded": false})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
