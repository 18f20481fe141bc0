package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/tasktracker/internal/domain/user"
	"github.com/geocoder89/tasktracker/internal/service"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Register(ctx context.Context, req user.RegisterRequest) (user.Public, error)
	Login(ctx context.Context, username, password string) (service.Session, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Username) == "" {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "username", Rule: "required", Message: "is required"}},
		})
		return
	}

	// bcrypt dominates this call
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.auth.Register(cctx, req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username is already taken.")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, user.ErrConflict):
			RespondConflict(ctx, "conflict", "User already exists.")
		default:
			respondInternalErr(ctx, "Could not create user", err)
		}
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	sess, err := h.auth.Login(cctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondUnAuthorized(ctx, "user_not_found", "User not found.")
		case errors.Is(err, user.ErrInvalidCredentials):
			RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials.")
		default:
			respondInternalErr(ctx, "Could not log in", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, sess)
}
