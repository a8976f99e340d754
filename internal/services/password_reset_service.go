package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"internboard/internal/repositories"
)

const (
	otpSubject = "Your OTP to Reset Password"
	otpMin     = 100000
	otpSpan    = 900000
)

type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	CompleteReset(ctx context.Context, email, password, confirm string) error
}

type passwordResetService struct {
	userRepo repositories.UserRepository
	hasher   PasswordHasher
	mailer   Mailer
	otpTTL   time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewPasswordResetService(
	userRepo repositories.UserRepository,
	hasher PasswordHasher,
	mailer Mailer,
	otpTTL time.Duration,
	log *zap.Logger,
) PasswordResetService {
	if otpTTL <= 0 {
		otpTTL = 5 * time.Minute
	}
	return &passwordResetService{
		userRepo: userRepo,
		hasher:   hasher,
		mailer:   mailer,
		otpTTL:   otpTTL,
		now:      time.Now,
		log:      log.Named("password-reset"),
	}
}

// RequestReset stores a fresh code before mailing it. A failed dispatch leaves
// the code in place; a repeated request overwrites it.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.otpTTL)
	if err := s.userRepo.SetOTP(ctx, email, code, expires); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.mailer.Send(ctx, email, otpSubject, otpEmailBody(code, s.otpTTL)); err != nil {
		s.log.Warn("otp dispatch failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	s.log.Info("otp issued", zap.String("email", email), zap.Time("expires_at", expires))
	return nil
}

func (s *passwordResetService) VerifyOTP(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return err
	}
	if !user.HasPendingOTP() || *user.OTPCode != code {
		return ErrInvalidOrExpired
	}

	now := s.now()
	if !now.Before(*user.OTPExpiresAt) {
		return ErrOTPExpired
	}

	ok, err := s.userRepo.ConsumeOTP(ctx, email, code, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpired
	}
	return nil
}

func (s *passwordResetService) CompleteReset(ctx context.Context, email, password, confirm string) error {
	email = NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrResetUnauthorized
		}
		return err
	}
	if !user.ResetAuthorized {
		return ErrResetUnauthorized
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < minPasswordLength {
		return ErrWeakCredential
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	ok, err := s.userRepo.CompleteReset(ctx, email, hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrResetUnauthorized
	}
	s.log.Info("password reset completed", zap.Int64("user_id", user.ID))
	return nil
}

// generateOTP returns a uniformly distributed code in 100000..999999.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func otpEmailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<h3>Your OTP: <b>%s</b></h3><p>It is valid for %d minutes.</p>`, code, int(ttl.Minutes()))
}
