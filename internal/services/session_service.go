package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"internboard/internal/models"
	"internboard/internal/session"
	"internboard/internal/utils"
)

type SessionService interface {
	Start(ctx context.Context, user *models.User) (*session.Session, error)
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Require(ctx context.Context, token string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
}

type sessionService struct {
	store       session.Store
	credentials CredentialService
	ttl         time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewSessionService(store session.Store, credentials CredentialService, ttl time.Duration, log *zap.Logger) SessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessionService{
		store:       store,
		credentials: credentials,
		ttl:         ttl,
		now:         time.Now,
		log:         log.Named("sessions"),
	}
}

func (s *sessionService) Start(ctx context.Context, user *models.User) (*session.Session, error) {
	token, err := utils.NewSessionToken(32)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	now := s.now()
	sess := session.Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionService) Login(ctx context.Context, email, password string) (*session.Session, error) {
	user, err := s.credentials.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.Start(ctx, user)
}

// Require resolves a live session. A session whose user no longer exists is
// deleted before ErrUnauthenticated is returned.
func (s *sessionService) Require(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if sess.Expired(s.now()) {
		if err := s.store.Delete(ctx, token); err != nil {
			s.log.Warn("expired session delete failed", zap.Int64("user_id", sess.UserID), zap.Error(err))
		}
		return nil, ErrUnauthenticated
	}

	if _, err := s.credentials.GetByID(ctx, sess.UserID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.log.Info("dropping session of missing user", zap.Int64("user_id", sess.UserID))
		if err := s.store.Delete(ctx, token); err != nil {
			s.log.Warn("session delete failed", zap.Error(err))
		}
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.Delete(ctx, token)
}
