package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/contracts"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"
)

type IContactService interface {
	// AddContact is the explicit add flow; first-message sends create edges
	// implicitly through MessageService.
	AddContact(ctx context.Context, owner, other string) error
	// ListWithPreview returns the inbox view, cached for the configured TTL.
	ListWithPreview(ctx context.Context, owner string) ([]domain.ContactPreview, error)
}

type ContactService struct {
	users      domain.UserRepository
	repo       domain.ContactRepository
	presence   contracts.Presence
	cache      contracts.PreviewCache
	previewTTL time.Duration
	log        *slog.Logger
}

func NewContactService(
	log *slog.Logger,
	users domain.UserRepository,
	repo domain.ContactRepository,
	presence contracts.Presence,
	cache contracts.PreviewCache,
	previewTTL time.Duration,
) *ContactService {
	return &ContactService{
		log:        log,
		users:      users,
		repo:       repo,
		presence:   presence,
		cache:      cache,
		previewTTL: previewTTL,
	}
}

func (s *ContactService) AddContact(ctx context.Context, owner, other string) error {
	if _, err := s.users.GetUserByID(ctx, owner); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(ctx, other); err != nil {
		return err
	}
	if err := s.repo.EnsureBidirectional(ctx, owner, other); err != nil {
		s.log.ErrorContext(ctx, "contacts - add - ensure edges failed", "owner", owner, "other", other, "err", err)
		return err
	}
	if err := s.cache.Invalidate(ctx, owner, other); err != nil {
		s.log.ErrorContext(ctx, "contacts - add - cache invalidate failed", "err", err)
	}
	s.log.InfoContext(ctx, "contacts - add - edges ensured", "owner", owner, "other", other)
	return nil
}

// ListWithPreview serves from the cache when possible. The presence flag is
// stamped fresh on every call, cached or not: a 30-second-old online bit is
// useless while a 30-second-old unread count is acceptable.
func (s *ContactService) ListWithPreview(ctx context.Context, owner string) ([]domain.ContactPreview, error) {
	if raw, hit, err := s.cache.Get(ctx, owner); err == nil && hit {
		var previews []domain.ContactPreview
		if err := json.Unmarshal(raw, &previews); err == nil {
			s.stampPresence(previews)
			return previews, nil
		}
		s.log.ErrorContext(ctx, "contacts - list - corrupt cache entry", "owner", owner)
	} else if err != nil {
		s.log.ErrorContext(ctx, "contacts - list - cache read failed", "owner", owner, "err", err)
	}
	previews, err := s.repo.ListPreviews(ctx, owner)
	if err != nil {
		s.log.ErrorContext(ctx, "contacts - list - query failed", "owner", owner, "err", err)
		return nil, err
	}
	if raw, err := json.Marshal(previews); err == nil {
		if err := s.cache.Set(ctx, owner, raw, s.previewTTL); err != nil {
			s.log.ErrorContext(ctx, "contacts - list - cache write failed", "owner", owner, "err", err)
		}
	}
	s.stampPresence(previews)
	return previews, nil
}

func (s *ContactService) stampPresence(previews []domain.ContactPreview) {
	for i := range previews {
		previews[i].Online = s.presence.IsOnline(previews[i].ContactID)
	}
}
