package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/models"
)

// AccountStore is the account repository subset the admin surface writes
// through. These are the same fields the status projector reads, so every
// mutation is immediately visible on the dashboard.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetAccess(ctx context.Context, id uuid.UUID, hasAccess, clearTrial bool) error
	SetTrial(ctx context.Context, id uuid.UUID, onTrial bool, startAt, endAt *time.Time) error
}

// Handler serves the thin administrative mutation surface. Routes are gated
// by the admin role upstream.
type Handler struct {
	accounts  AccountStore
	trialDays int
	log       *slog.Logger
	now       func() time.Time
}

func NewHandler(accounts AccountStore, trialDays int, log *slog.Logger) *Handler {
	if trialDays <= 0 {
		trialDays = 14
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accounts: accounts, trialDays: trialDays, log: log, now: time.Now}
}

type extendTrialRequest struct {
	Days int `json:"days"`
}

// ExtendTrial handles POST /api/v1/admin/accounts/{id}/trial/extend.
// Extension is measured from the current trial end when it is still in the
// future, otherwise from now, so an expired trial comes back with exactly
// the granted days.
func (h *Handler) ExtendTrial(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.loadAccount(w, r)
	if !ok {
		return
	}
	var req extendTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Days <= 0 {
		http.Error(w, `{"error":"days must be > 0"}`, http.StatusBadRequest)
		return
	}

	now := h.now()
	base := now
	if acct.TrialEndAt != nil && acct.TrialEndAt.After(now) {
		base = *acct.TrialEndAt
	}
	newEnd := base.AddDate(0, 0, req.Days)
	start := acct.TrialStartAt
	if start == nil {
		start = &now
	}
	if err := h.accounts.SetTrial(r.Context(), acct.ID, true, start, &newEnd); err != nil {
		h.log.Error("extend trial failed", "account_id", acct.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	h.log.Info("trial extended", "account_id", acct.ID, "days", req.Days, "trial_end_at", newEnd)
	writeJSON(w, http.StatusOK, map[string]any{"trial_end_at": newEnd})
}

// ResetTrial handles POST /api/v1/admin/accounts/{id}/trial/reset.
func (h *Handler) ResetTrial(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.loadAccount(w, r)
	if !ok {
		return
	}
	now := h.now()
	end := now.AddDate(0, 0, h.trialDays)
	if err := h.accounts.SetTrial(r.Context(), acct.ID, true, &now, &end); err != nil {
		h.log.Error("reset trial failed", "account_id", acct.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	h.log.Info("trial reset", "account_id", acct.ID, "trial_end_at", end)
	writeJSON(w, http.StatusOK, map[string]any{"trial_end_at": end})
}

// GrantAccess handles POST /api/v1/admin/accounts/{id}/access/grant.
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	h.setAccess(w, r, true)
}

// RevokeAccess handles POST /api/v1/admin/accounts/{id}/access/revoke.
func (h *Handler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	h.setAccess(w, r, false)
}

func (h *Handler) setAccess(w http.ResponseWriter, r *http.Request, hasAccess bool) {
	acct, ok := h.loadAccount(w, r)
	if !ok {
		return
	}
	if err := h.accounts.SetAccess(r.Context(), acct.ID, hasAccess, false); err != nil {
		h.log.Error("set access failed", "account_id", acct.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	h.log.Info("access updated", "account_id", acct.ID, "has_access", hasAccess)
	writeJSON(w, http.StatusOK, map[string]any{"has_access": hasAccess})
}

func (h *Handler) loadAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid account id"}`, http.StatusBadRequest)
		return nil, false
	}
	acct, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		h.log.Error("load account failed", "account_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return nil, false
	}
	if acct == nil {
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
		return nil, false
	}
	return acct, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
