package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soloviov/accounthub/internal/auth"
	"github.com/soloviov/accounthub/internal/config"
	"github.com/soloviov/accounthub/internal/domain/user"
	"github.com/soloviov/accounthub/internal/http/middlewares"
	"github.com/soloviov/accounthub/internal/repo/postgres"
	"github.com/soloviov/accounthub/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TokenStore interface {
	Create(ctx context.Context, row postgres.AccessTokenRow) error
	Get(ctx context.Context, id string) (postgres.AccessTokenRow, error)
	Revoke(ctx context.Context, id string) error
}

type TokenDenylister interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type AuthHandler struct {
	users    UserReader
	tokens   TokenStore
	jwt      *auth.Manager
	denylist TokenDenylister
}

func NewAuthHandler(users UserReader, tokens TokenStore, jwtManager *auth.Manager, denylist TokenDenylister) *AuthHandler {
	return &AuthHandler{
		users:    users,
		tokens:   tokens,
		jwt:      jwtManager,
		denylist: denylist,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	verrs, ok := BindChecked(ctx, &req)

	if !ok {
		return
	}

	if len(verrs) > 0 {
		RespondValidation(ctx, verrs)
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	raw, jti, expiresAt, err := h.jwt.GenerateAccessToken(foundUser)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	row := postgres.AccessTokenRow{
		ID:        jti,
		UserID:    foundUser.ID,
		TokenHash: h.jwt.HashToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.tokens.Create(cctx, row)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": raw,
	})
}

// Logout revokes the presented token: ledger row first, then the redis
// denylist so the token stops passing RequireAuth immediately. A token that
// cannot be revoked keeps authenticating until expiry, so either write
// failing is a 500, not a silent success.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)

	if !ok {
		// RequireAuth did not run; treat as unauthenticated
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	raw := strings.TrimSpace(strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer"))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	row, err := h.tokens.Get(cctx, claims.JTI)

	if err != nil {
		if errors.Is(err, postgres.ErrTokenNotFound) {
			// signed but never issued through /login
			RespondUnAuthorized(ctx, "unauthorized", "Unknown access token")
			return
		}

		RespondInternal(ctx, "Could not log out")
		return
	}

	// verify hash matches the presented token (prevents token substitution)

	if row.TokenHash != h.jwt.HashToken(raw) {
		RespondUnAuthorized(ctx, "unauthorized", "Unknown access token")
		return
	}

	err = h.tokens.Revoke(cctx, claims.JTI)

	if err != nil {
		RespondInternal(ctx, "Could not log out")
		return
	}

	if claims.ExpiresAt != nil {
		err = h.denylist.Revoke(cctx, claims.JTI, time.Until(claims.ExpiresAt.Time))

		if err != nil {
			RespondInternal(ctx, "Could not log out")
			return
		}
	}

	ctx.Status(http.StatusNoContent)
}
