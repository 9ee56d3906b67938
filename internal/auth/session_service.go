package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/guanago/guanago/internal/models"
	"github.com/guanago/guanago/pkg/metrics"
)

// DefaultSessionTTL is the admin session lifetime.
const DefaultSessionTTL = 8 * time.Hour

var (
	// ErrSessionNotFound indicates that no session matches the identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a session revoked by logout.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that a session passed its expiry.
	ErrSessionExpired = errors.New("session: expired")
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	SessionTTL time.Duration
	Clock      func() time.Time
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// IssuedSession pairs a persisted session with its signed access token.
type IssuedSession struct {
	Session    *models.AdminSession
	Credential AdminCredential
	Token      string
}

// SessionService manages creation, resumption, and revocation of admin
// sessions. The credential snapshot taken at login is stored with the
// session, so a later edit to the remote credential table does not
// invalidate or alter an already issued session.
type SessionService struct {
	db  *gorm.DB
	jwt *JWTService
	ttl time.Duration
	now func() time.Time
}

// NewSessionService constructs a session manager backed by the provided
// database and JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:  db,
		jwt: jwtService,
		ttl: ttl,
		now: clock,
	}, nil
}

// Issue creates a session for a validated credential and signs its token.
func (s *SessionService) Issue(credential AdminCredential, meta SessionMetadata) (*IssuedSession, error) {
	if strings.TrimSpace(credential.ID) == "" {
		return nil, errors.New("session service: credential id is required")
	}

	snapshot, err := json.Marshal(credential)
	if err != nil {
		return nil, fmt.Errorf("session service: encode credential: %w", err)
	}

	now := s.now()
	session := &models.AdminSession{
		AdminID:   credential.ID,
		User:      snapshot,
		IPAddress: strings.TrimSpace(meta.IPAddress),
		UserAgent: strings.TrimSpace(meta.UserAgent),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveAdminSessions.Inc()

	token, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		AdminID:   credential.ID,
		SessionID: session.ID,
		Role:      credential.Role,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("session service: generate access token: %w", err)
	}

	return &IssuedSession{
		Session:    session,
		Credential: credential,
		Token:      token,
	}, nil
}

// Resume loads a session by id. Expired sessions are deleted on read and
// reported as ErrSessionExpired, so a stale session never lingers past the
// first attempt to use it.
func (s *SessionService) Resume(sessionID string) (*models.AdminSession, AdminCredential, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, AdminCredential{}, ErrSessionNotFound
	}

	var session models.AdminSession
	if err := s.db.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, AdminCredential{}, ErrSessionNotFound
		}
		return nil, AdminCredential{}, fmt.Errorf("session service: load session: %w", err)
	}

	if session.RevokedAt != nil {
		return nil, AdminCredential{}, ErrSessionRevoked
	}

	if !s.now().Before(session.ExpiresAt) {
		if err := s.db.Delete(&models.AdminSession{}, "id = ?", session.ID).Error; err == nil {
			metrics.ActiveAdminSessions.Dec()
		}
		return nil, AdminCredential{}, ErrSessionExpired
	}

	var credential AdminCredential
	if len(session.User) > 0 {
		if err := json.Unmarshal(session.User, &credential); err != nil {
			return nil, AdminCredential{}, fmt.Errorf("session service: decode credential: %w", err)
		}
	}

	return &session, credential, nil
}

// Revoke marks a session as logged out. Revoking an unknown or already
// revoked session is not an error.
func (s *SessionService) Revoke(sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}

	now := s.now()
	result := s.db.Model(&models.AdminSession{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", now)
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.ActiveAdminSessions.Dec()
	}
	return nil
}

// CleanupExpired removes sessions past their expiry or revoked. Used by the
// maintenance scheduler; returns the number of rows removed.
func (s *SessionService) CleanupExpired() (int64, error) {
	result := s.db.
		Where("expires_at <= ? OR revoked_at IS NOT NULL", s.now()).
		Delete(&models.AdminSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
