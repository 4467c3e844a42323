package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/menuahora/backend/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateUsername is returned when the chosen username is taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrSelfReferral is returned when a referral code equals the account's own
	// username. Registration is the only point referral codes are assigned, so
	// a self-referral can never reach the settlement path.
	ErrSelfReferral = errors.New("referral code cannot be your own username")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AccountStore is the account repository subset auth needs.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

type Service interface {
	Register(ctx context.Context, email, username, password, referredBy string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	store     AccountStore
	secret    []byte
	trialDays int
}

// NewService creates the auth service. trialDays is the length of the free
// trial started at registration.
func NewService(store AccountStore, jwtSecret string, trialDays int) Service {
	if trialDays <= 0 {
		trialDays = 14
	}
	return &service{store: store, secret: []byte(jwtSecret), trialDays: trialDays}
}

var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Register creates a business account with a fresh trial. referredBy is the
// optional referral code (the referring business's username); it is stored
// as given — resolution to an actual referrer happens at settlement time,
// where an unresolvable code simply earns nothing.
func (s *service) Register(ctx context.Context, email, username, password, referredBy string) (*models.Account, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	referredBy = strings.ToLower(strings.TrimSpace(referredBy))
	if username == "" {
		return nil, errors.New("username is required")
	}
	if referredBy != "" && referredBy == username {
		return nil, ErrSelfReferral
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	trialEnd := now.AddDate(0, 0, s.trialDays)
	acct := &models.Account{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleBusiness,
		IsOnTrial:    true,
		TrialStartAt: &now,
		TrialEndAt:   &trialEnd,
	}
	if referredBy != "" {
		acct.ReferredByCode = &referredBy
	}

	if err := s.store.Create(ctx, acct); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return nil, ErrDuplicateUsername
			}
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return acct, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	acct, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(acct.ID, acct.Role)
}

func (s *service) issueToken(accountID uuid.UUID, role string) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}
