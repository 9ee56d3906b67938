package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/guanago/guanago/internal/auth"
	"github.com/guanago/guanago/internal/middleware"
	"github.com/guanago/guanago/internal/webhooks"
	appErrors "github.com/guanago/guanago/pkg/errors"
	"github.com/guanago/guanago/pkg/metrics"
	"github.com/guanago/guanago/pkg/response"
)

// AuthHandler manages the admin PIN flow: validation, session resume, logout.
type AuthHandler struct {
	validator *iauth.Validator
	sessions  *iauth.SessionService
	attempts  *iauth.AttemptTracker
	notifier  *webhooks.Notifier
}

func NewAuthHandler(validator *iauth.Validator, sessions *iauth.SessionService, attempts *iauth.AttemptTracker, notifier *webhooks.Notifier) *AuthHandler {
	return &AuthHandler{
		validator: validator,
		sessions:  sessions,
		attempts:  attempts,
		notifier:  notifier,
	}
}

type validatePINRequest struct {
	PIN string `json:"pin" validate:"required,notblank,max=64"`
}

type sessionPayload struct {
	ID        string `json:"id"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

// POST /api/validate-admin-pin
func (h *AuthHandler) ValidatePIN(c *gin.Context) {
	var req validatePINRequest
	if !bindAndValidate(c, &req) {
		return
	}

	clientKey := c.ClientIP()
	if h.attempts != nil && h.attempts.Locked(c.Request.Context(), clientKey) {
		metrics.PINAttempts.WithLabelValues("locked").Inc()
		response.Error(c, appErrors.ErrPINLocked)
		return
	}

	credential, err := h.validator.ValidatePIN(c.Request.Context(), req.PIN)
	if err != nil {
		if errors.Is(err, iauth.ErrEmptyPIN) {
			response.Error(c, appErrors.NewBadRequest("pin is required"))
			return
		}

		if h.attempts == nil {
			response.Error(c, appErrors.ErrInvalidPIN)
			return
		}

		state := h.attempts.RegisterFailure(c.Request.Context(), clientKey)
		if state.Locked {
			response.ErrorWithDetails(c, appErrors.ErrPINLocked, map[string]any{
				"attempts_remaining": 0,
			})
			return
		}
		response.ErrorWithDetails(c, appErrors.ErrInvalidPIN, map[string]any{
			"attempts_remaining": state.Remaining,
		})
		return
	}

	if h.attempts != nil {
		h.attempts.Reset(c.Request.Context(), clientKey)
	}

	issued, err := h.sessions.Issue(*credential, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	if h.notifier != nil {
		h.notifier.Notify(webhooks.EventAdminLogin, map[string]any{
			"admin_id":   credential.ID,
			"admin_name": credential.DisplayName,
			"role":       credential.Role,
			"ip_address": c.ClientIP(),
		})
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":       issued.Credential,
		"token":      issued.Token,
		"expires_at": issued.Session.ExpiresAt,
	})
}

// GET /api/admin/session
func (h *AuthHandler) CurrentSession(c *gin.Context) {
	sessionID := c.GetString(middleware.CtxSessionIDKey)
	if sessionID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, credential, err := h.sessions.Resume(sessionID)
	if err != nil {
		// Expired sessions are purged by Resume; all resume failures look
		// the same to the client.
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": credential,
		"session": sessionPayload{
			ID:        session.ID,
			IssuedAt:  session.IssuedAt.UTC().Format(time.RFC3339),
			ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

// POST /api/admin/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := c.GetString(middleware.CtxSessionIDKey)
	if sessionID != "" {
		if err := h.sessions.Revoke(sessionID); err != nil {
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			return
		}
	}

	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}
