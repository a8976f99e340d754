package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"internboard/internal/models"
	"internboard/internal/repositories"
)

const announceTimeout = 5 * time.Second

var linkPattern = regexp.MustCompile(`^https?://[^\s$.?#].[^\s]*$`)

type InternshipService interface {
	Create(ctx context.Context, ownerID int64, input models.InternshipInput) (*models.Internship, error)
	List(ctx context.Context, limit int, order models.ListOrder) ([]models.Internship, error)
	Get(ctx context.Context, id int64) (*models.Internship, error)
	Delete(ctx context.Context, id, requesterID int64) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type internshipService struct {
	repo      repositories.InternshipRepository
	announcer InternshipAnnouncer
	pageSize  int
	now       func() time.Time
	log       *zap.Logger

	announceTimeout time.Duration
}

func NewInternshipService(repo repositories.InternshipRepository, announcer InternshipAnnouncer, pageSize int, log *zap.Logger) InternshipService {
	if announcer == nil {
		announcer = NewNoopAnnouncer()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &internshipService{
		repo:      repo,
		announcer: announcer,
		pageSize:  pageSize,
		now:       time.Now,
		log:       log.Named("internships"),

		announceTimeout: announceTimeout,
	}
}

func (s *internshipService) Create(ctx context.Context, ownerID int64, input models.InternshipInput) (*models.Internship, error) {
	in := &models.Internship{
		Company:     strings.TrimSpace(input.Company),
		Batch:       strings.TrimSpace(input.Batch),
		Description: strings.TrimSpace(input.Description),
		Link:        strings.TrimSpace(input.Link),
		Deadline:    input.Deadline,
		PostedBy:    ownerID,
	}
	if in.Company == "" || in.Batch == "" || in.Description == "" || !linkPattern.MatchString(in.Link) {
		return nil, ErrInvalidListing
	}
	now := s.now()
	if !in.Deadline.After(now) {
		return nil, ErrInvalidDeadline
	}
	in.CreatedAt = now

	if err := s.repo.Store(ctx, in); err != nil {
		return nil, err
	}
	s.log.Info("internship posted", zap.Int64("id", in.ID), zap.Int64("posted_by", ownerID))

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.announceTimeout)
	defer cancel()
	if err := s.announcer.Announce(actx, in); err != nil {
		s.log.Warn("announce failed", zap.Int64("id", in.ID), zap.Error(err))
	}
	return in, nil
}

func (s *internshipService) List(ctx context.Context, limit int, order models.ListOrder) ([]models.Internship, error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	if order != models.OrderDeadline {
		order = models.OrderNewest
	}
	return s.repo.List(ctx, limit, order)
}

func (s *internshipService) Get(ctx context.Context, id int64) (*models.Internship, error) {
	in, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return in, nil
}

// Delete removes a listing owned by requesterID.
func (s *internshipService) Delete(ctx context.Context, id, requesterID int64) error {
	in, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if in.PostedBy != requesterID {
		return ErrForbidden
	}
	if err := s.repo.DeleteOwned(ctx, id, requesterID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("internship deleted", zap.Int64("id", id), zap.Int64("user_id", requesterID))
	return nil
}

func (s *internshipService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}
