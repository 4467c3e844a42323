package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/menuahora/backend/internal/models"
)

// AccountLookup is the subset of the account repository the resolver uses.
// Each method returns (nil, nil) when no account matches.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
}

// Resolver turns loose account references into canonical Account records.
// "Not found" is a legitimate outcome (e.g. a referral code pointing at a
// deleted business), reported as (nil, nil) rather than an error.
type Resolver struct {
	accounts AccountLookup
}

func NewResolver(accounts AccountLookup) *Resolver {
	return &Resolver{accounts: accounts}
}

// Resolve tries, in order: exact id match, then email match. These are the
// two addressing schemes the payment provider uses for customer references.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*models.Account, error) {
	if ref == "" {
		return nil, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		acct, err := r.accounts.GetByID(ctx, id)
		if err != nil || acct != nil {
			return acct, err
		}
	}
	return r.accounts.GetByEmail(ctx, ref)
}

// ByUsername resolves a referral code, which is always the referring
// business's username.
func (r *Resolver) ByUsername(ctx context.Context, username string) (*models.Account, error) {
	if username == "" {
		return nil, nil
	}
	return r.accounts.GetByUsername(ctx, username)
}
