package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"internboard/internal/models"
	"internboard/internal/repositories"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an identity before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type CredentialService interface {
	Create(ctx context.Context, email, password string) (*models.User, error)
	Verify(ctx context.Context, email, password string) (*models.User, error)
	UpdateCredential(ctx context.Context, email, password string) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type credentialService struct {
	repo   repositories.UserRepository
	hasher PasswordHasher
	log    *zap.Logger
}

func NewCredentialService(repo repositories.UserRepository, hasher PasswordHasher, log *zap.Logger) CredentialService {
	return &credentialService{
		repo:   repo,
		hasher: hasher,
		log:    log.Named("credentials"),
	}
}

func (s *credentialService) Create(ctx context.Context, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidIdentity
	}

	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateIdentity
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	if len(password) < minPasswordLength {
		return nil, ErrWeakCredential
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *credentialService) Verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrBadCredential
	}
	return user, nil
}

func (s *credentialService) UpdateCredential(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakCredential
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, NormalizeEmail(email), hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *credentialService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *credentialService) lookup(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}
