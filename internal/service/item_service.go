package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-sync/internal/domain"
	"github.com/spec-kit/task-sync/internal/events"
	"github.com/spec-kit/task-sync/internal/repository"
	apperrors "github.com/spec-kit/task-sync/pkg/util/errorutil"
)

// Publisher accepts change events for fan-out.
type Publisher interface {
	Publish(event events.ChangeEvent)
}

// ItemService applies item mutations and publishes one change event per
// successful write. The caller has already verified the identity.
type ItemService struct {
	items     repository.ItemRepository
	publisher Publisher
	logger    *zap.Logger
}

// ItemDependencies bundles collaborators for the item service.
type ItemDependencies struct {
	ItemRepo  repository.ItemRepository
	Publisher Publisher
	Logger    *zap.Logger
}

// NewItemService constructs the service. It panics without a publisher.
func NewItemService(deps ItemDependencies) *ItemService {
	if deps.Publisher == nil {
		panic("service: item service requires a publisher")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{items: deps.ItemRepo, publisher: deps.Publisher, logger: logger}
}

// ListItems returns the caller's items, newest first.
func (s *ItemService) ListItems(ctx context.Context, identity domain.Identity) ([]domain.Item, error) {
	items, err := s.items.ListByOwner(ctx, identity.SubjectID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// CreateItem stores a new item owned by the caller and publishes Created.
func (s *ItemService) CreateItem(ctx context.Context, identity domain.Identity, draft domain.ItemDraft) (*domain.Item, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	item := &domain.Item{
		Title:     title,
		Completed: draft.Completed,
		Category:  draft.Category,
		OwnerID:   identity.SubjectID,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(events.ItemCreated(*item))
	return item, nil
}

// UpdateItem merges patch over the caller's item and publishes Updated.
// Items owned by someone else are reported as not found.
func (s *ItemService) UpdateItem(ctx context.Context, identity domain.Identity, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.NewValidationError("title must not be empty", nil)
	}

	current, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, itemNotFound(id)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if current.OwnerID != identity.SubjectID {
		s.logger.Debug("update rejected for foreign item",
			zap.Int64("item_id", id),
			zap.Int64("subject_id", identity.SubjectID))
		return nil, itemNotFound(id)
	}

	merged := patch.Apply(*current)
	if err := s.items.Update(ctx, &merged); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, itemNotFound(id)
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(events.ItemUpdated(merged))
	return &merged, nil
}

// DeleteItem removes the caller's item and publishes Deleted. It reports
// false, without publishing, when nothing was removed.
func (s *ItemService) DeleteItem(ctx context.Context, identity domain.Identity, id int64) (bool, error) {
	deleted, err := s.items.Delete(ctx, id, identity.SubjectID)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	if !deleted {
		return false, nil
	}

	s.publish(events.ItemDeleted(id))
	return true, nil
}

func (s *ItemService) publish(event events.ChangeEvent) {
	s.publisher.Publish(event)
}

func itemNotFound(id int64) error {
	return apperrors.NewNotFound("item", map[string]any{"id": id})
}
