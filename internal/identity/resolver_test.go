package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/models"
)

type mockLookup struct {
	byID       map[uuid.UUID]*models.Account
	byEmail    map[string]*models.Account
	byUsername map[string]*models.Account
}

func (m *mockLookup) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return m.byID[id], nil
}
func (m *mockLookup) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return m.byEmail[email], nil
}
func (m *mockLookup) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	return m.byUsername[username], nil
}

func TestResolveByID(t *testing.T) {
	acct := &models.Account{ID: uuid.New(), Email: "a@b.com"}
	r := NewResolver(&mockLookup{
		byID:    map[uuid.UUID]*models.Account{acct.ID: acct},
		byEmail: map[string]*models.Account{},
	})

	got, err := r.Resolve(context.Background(), acct.ID.String())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.ID != acct.ID {
		t.Errorf("expected account by id, got %+v", got)
	}
}

func TestResolveFallsBackToEmail(t *testing.T) {
	acct := &models.Account{ID: uuid.New(), Email: "a@b.com"}
	r := NewResolver(&mockLookup{
		byID:    map[uuid.UUID]*models.Account{},
		byEmail: map[string]*models.Account{"a@b.com": acct},
	})

	got, err := r.Resolve(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.ID != acct.ID {
		t.Errorf("expected account by email, got %+v", got)
	}
}

func TestResolveUUIDShapedEmailMiss(t *testing.T) {
	// A reference that parses as a UUID but matches no account must still
	// fall through to the email lookup.
	id := uuid.New()
	acct := &models.Account{ID: uuid.New(), Email: id.String()}
	r := NewResolver(&mockLookup{
		byID:    map[uuid.UUID]*models.Account{},
		byEmail: map[string]*models.Account{id.String(): acct},
	})

	got, err := r.Resolve(context.Background(), id.String())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil {
		t.Error("expected fallback to email lookup")
	}
}

func TestResolveNotFoundIsNotAnError(t *testing.T) {
	r := NewResolver(&mockLookup{
		byID:    map[uuid.UUID]*models.Account{},
		byEmail: map[string]*models.Account{},
	})

	got, err := r.Resolve(context.Background(), "missing@b.com")
	if err != nil {
		t.Fatalf("not-found must not error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil account, got %+v", got)
	}

	got, err = r.Resolve(context.Background(), "")
	if err != nil || got != nil {
		t.Errorf("empty ref: got (%+v, %v), want (nil, nil)", got, err)
	}
}

func TestByUsername(t *testing.T) {
	acct := &models.Account{ID: uuid.New(), Username: "tacos-maria"}
	r := NewResolver(&mockLookup{byUsername: map[string]*models.Account{"tacos-maria": acct}})

	got, err := r.ByUsername(context.Background(), "tacos-maria")
	if err != nil {
		t.Fatalf("ByUsername: %v", err)
	}
	if got == nil || got.ID != acct.ID {
		t.Errorf("expected referrer account, got %+v", got)
	}

	got, err = r.ByUsername(context.Background(), "deleted-business")
	if err != nil || got != nil {
		t.Errorf("missing code: got (%+v, %v), want (nil, nil)", got, err)
	}
}
