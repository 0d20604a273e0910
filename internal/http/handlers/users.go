package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soloviov/accounthub/internal/config"
	"github.com/soloviov/accounthub/internal/domain/user"
	"github.com/soloviov/accounthub/internal/repo/postgres"
	"github.com/soloviov/accounthub/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash, gender string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UsersHandler struct {
	users UserStore
}

func NewUsersHandler(users UserStore) *UsersHandler {
	return &UsersHandler{users: users}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Gender   string `json:"gender" binding:"required,oneof=male female"`
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	verrs, ok := BindChecked(ctx, &req)

	if !ok {
		return
	}

	if verrs == nil {
		verrs = map[string][]string{}
	}

	// password policy runs only once a password is present; "required"
	// already covers the empty case
	if req.Password != "" {
		if msgs := passwordViolations(req.Password); len(msgs) > 0 {
			verrs["password"] = append(verrs["password"], msgs...)
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	// duplicate check is advisory; the unique index below is the authority
	if req.Email != "" && len(verrs["email"]) == 0 {
		_, err := h.users.GetByEmail(cctx, req.Email)

		if err == nil {
			verrs["email"] = append(verrs["email"], "The email has already been taken.")
		} else if !errors.Is(err, postgres.ErrUserNotFound) {
			RespondInternal(ctx, "Could not register user")
			return
		}
	}

	if len(verrs) > 0 {
		RespondValidation(ctx, verrs)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not register user")
		return
	}

	u, err := h.users.Create(cctx, req.Name, req.Email, hash, req.Gender)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			// lost the race against a concurrent registration
			RespondValidation(ctx, map[string][]string{
				"email": {"The email has already been taken."},
			})
			return
		}

		RespondInternal(ctx, "Could not register user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    u.Public(),
	})
}

// Profile resolves a user by id or email. The id wins when both are given;
// the caller's own identity never scopes the lookup.
func (h *UsersHandler) Profile(ctx *gin.Context) {
	idParam := ctx.Query("id")
	emailParam := ctx.Query("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	var (
		u   user.User
		err error
	)

	switch {
	case idParam != "":
		id, convErr := strconv.ParseInt(idParam, 10, 64)

		if convErr != nil {
			// a non-numeric id cannot match any user
			respondUserNotFound(ctx)
			return
		}

		u, err = h.users.GetByID(cctx, id)

	case emailParam != "":
		u, err = h.users.GetByEmail(cctx, emailParam)

	default:
		respondUserNotFound(ctx)
		return
	}

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			respondUserNotFound(ctx)
			return
		}

		RespondInternal(ctx, "Could not fetch profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": u.Public(),
	})
}

// deliberately generic: does not say whether id or email missed
func respondUserNotFound(ctx *gin.Context) {
	ctx.JSON(http.StatusNotFound, gin.H{
		"message": "User not found",
	})
}
