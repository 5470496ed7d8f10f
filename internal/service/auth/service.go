package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/briefing-buddy/backend/internal/config"
	"github.com/briefing-buddy/backend/internal/model/auth"
	"github.com/briefing-buddy/backend/internal/storage"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("not signed in")
	ErrSessionExpired     = errors.New("session expired")
)

const (
	defaultRole  = "user"
	userIDLength = 12
)

// Service issues and validates sign-in sessions.
type Service struct {
	store  storage.Store
	hash   []byte
	ttl    time.Duration
	logger *zap.Logger
}

// NewService prepares the password hash. A configured hash wins over the
// plain password.
func NewService(store storage.Store, cfg config.AuthConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var hash []byte
	switch {
	case cfg.PasswordHash != "":
		hash = []byte(cfg.PasswordHash)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid AUTH_PASSWORD_HASH: %w", err)
		}
	case cfg.Password != "":
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = generated
	default:
		return nil, errors.New("AUTH_PASSWORD or AUTH_PASSWORD_HASH must be set")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{store: store, hash: hash, ttl: ttl, logger: logger}, nil
}

// TTL returns how long a session stays valid after it is issued or refreshed.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login checks the shared password and issues a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		s.logger.Info("login rejected", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	session := &auth.Session{
		Token:       uuid.NewString(),
		UserID:      UserID(email),
		Email:       email,
		DisplayName: DisplayName(email),
		Role:        defaultRole,
		IssuedAt:    time.Now().UTC(),
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", zap.String("user", session.UserID))
	return session, nil
}

// Validate returns the live session for token. An expired session is removed.
func (s *Service) Validate(ctx context.Context, token string) (*auth.Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	rec, err := s.store.Get(ctx, storage.AuthSessionPrefix+token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session auth.Session
	if err := json.Unmarshal(rec.Value, &session); err != nil {
		s.logger.Warn("discarding unreadable session", zap.Error(err))
		if err := s.store.Delete(ctx, storage.AuthSessionPrefix+token); err != nil {
			s.logger.Warn("failed to delete unreadable session", zap.Error(err))
		}
		return nil, ErrUnauthorized
	}

	if session.Expired(time.Now(), s.ttl) {
		if err := s.store.Delete(ctx, storage.AuthSessionPrefix+token); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Refresh restarts the validity window of a live session.
func (s *Service) Refresh(ctx context.Context, token string) (*auth.Session, error) {
	session, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	session.IssuedAt = time.Now().UTC()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout removes the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Delete(ctx, storage.AuthSessionPrefix+token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) save(ctx context.Context, session *auth.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Put(ctx, storage.AuthSessionPrefix+session.Token, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// UserID derives a stable identifier from the email address.
func UserID(email string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(strings.ToLower(strings.TrimSpace(email))))
	if len(encoded) > userIDLength {
		encoded = encoded[:userIDLength]
	}
	return encoded
}

// DisplayName 由邮箱本地部分生成展示名，例如 jane.doe@gov.ca -> "Jane Doe"。
func DisplayName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})

	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	if len(parts) == 0 {
		return "User"
	}
	return strings.Join(parts, " ")
}
