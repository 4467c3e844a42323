package router

import (
	"net/http"

	"github.com/menuahora/backend/internal/admin"
	"github.com/menuahora/backend/internal/auth"
	"github.com/menuahora/backend/internal/dashboard"
	"github.com/menuahora/backend/internal/handlers"
	"github.com/menuahora/backend/internal/middleware"
)

// New assembles the HTTP surface:
//
//   - POST /webhooks/payments — provider events, authenticated by body
//     signature, not by bearer token.
//   - /api/v1/auth/*          — public register/login.
//   - /api/v1/account, /api/v1/referrals — bearer JWT.
//   - /api/v1/admin/*         — bearer JWT + admin role.
func New(
	webhook *handlers.WebhookHandler,
	authHandler *auth.Handler,
	dashHandler *dashboard.Handler,
	adminHandler *admin.Handler,
	tokens middleware.TokenValidator,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhooks/payments", webhook.Handle)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	authed := middleware.RequireAuth(tokens)
	mux.Handle("GET /api/v1/account/me", authed(http.HandlerFunc(dashHandler.GetMe)))
	mux.Handle("GET /api/v1/referrals/settlements", authed(http.HandlerFunc(dashHandler.ListSettlements)))
	mux.Handle("POST /api/v1/payouts/account", authed(http.HandlerFunc(dashHandler.AttachPayoutAccount)))

	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireAdmin(h))
	}
	mux.Handle("POST /api/v1/admin/accounts/{id}/trial/extend", adminOnly(adminHandler.ExtendTrial))
	mux.Handle("POST /api/v1/admin/accounts/{id}/trial/reset", adminOnly(adminHandler.ResetTrial))
	mux.Handle("POST /api/v1/admin/accounts/{id}/access/grant", adminOnly(adminHandler.GrantAccess))
	mux.Handle("POST /api/v1/admin/accounts/{id}/access/revoke", adminOnly(adminHandler.RevokeAccess))

	return mux
}
