package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/memobox/pkg/db/live"
	"github.com/mwantia/memobox/pkg/db/models"
	"github.com/mwantia/memobox/pkg/db/store"
	"github.com/mwantia/memobox/pkg/errdefs"
	"github.com/mwantia/memobox/pkg/log"
	"github.com/mwantia/memobox/pkg/worker"
)

const DefaultTagWorkers = 1

// TagRepository manages tags. Its queue is single-worker, so tag
// operations complete in submission order.
type TagRepository struct {
	store store.MetadataStore
	queue *worker.Queue
	log   log.LoggerService
}

func NewTagRepository(st store.MetadataStore, workers int, logger log.LoggerService) (*TagRepository, error) {
	if st == nil {
		return nil, fmt.Errorf("tag repository requires a store")
	}
	if workers <= 0 {
		workers = DefaultTagWorkers
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	queue, err := worker.NewQueue("tags", workers, logger)
	if err != nil {
		return nil, err
	}

	return &TagRepository{
		store: st,
		queue: queue,
		log:   logger,
	}, nil
}

// InsertTag creates tag and resolves with its id. An existing tag with the
// same name is left untouched and the insert fails.
func (r *TagRepository) InsertTag(ctx context.Context, tag models.Tag) *worker.Future[uint] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (uint, error) {
		existing, err := r.store.GetTagByName(ctx, tag.Name)
		switch {
		case err == nil:
			return 0, fmt.Errorf("%w: tag '%s' already exists as %d", errdefs.ErrConstraintViolation, existing.Name, existing.ID)
		case !errors.Is(err, errdefs.ErrNotFound):
			return 0, fmt.Errorf("failed to look up tag '%s': %w", tag.Name, err)
		}

		tag.ID = 0
		if err := r.store.CreateTag(ctx, &tag); err != nil {
			return 0, fmt.Errorf("failed to insert tag '%s': %w", tag.Name, err)
		}

		r.log.Debug("Inserted tag %d '%s'", tag.ID, tag.Name)
		return tag.ID, nil
	})
}

func (r *TagRepository) UpdateTag(ctx context.Context, tag models.Tag) *worker.Future[struct{}] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (struct{}, error) {
		if err := r.store.UpdateTag(ctx, &tag); err != nil {
			return struct{}{}, fmt.Errorf("failed to update tag %d: %w", tag.ID, err)
		}
		return struct{}{}, nil
	})
}

// DeleteTag removes the tag and its associations. Items stay.
func (r *TagRepository) DeleteTag(ctx context.Context, id uint) *worker.Future[struct{}] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (struct{}, error) {
		if err := r.store.DeleteTag(ctx, id); err != nil {
			return struct{}{}, fmt.Errorf("failed to delete tag %d: %w", id, err)
		}
		return struct{}{}, nil
	})
}

func (r *TagRepository) DeleteTagByName(ctx context.Context, name string) *worker.Future[struct{}] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (struct{}, error) {
		tag, err := r.store.GetTagByName(ctx, name)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to find tag '%s': %w", name, err)
		}
		if err := r.store.DeleteTag(ctx, tag.ID); err != nil {
			return struct{}{}, fmt.Errorf("failed to delete tag '%s': %w", name, err)
		}
		return struct{}{}, nil
	})
}

func (r *TagRepository) GetAllTags(ctx context.Context) *worker.Future[[]models.Tag] {
	return worker.Submit(ctx, r.queue, r.store.ListTags)
}

func (r *TagRepository) GetTagByID(ctx context.Context, id uint) *worker.Future[*models.Tag] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (*models.Tag, error) {
		return r.store.GetTag(ctx, id)
	})
}

func (r *TagRepository) GetTagByName(ctx context.Context, name string) *worker.Future[*models.Tag] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (*models.Tag, error) {
		return r.store.GetTagByName(ctx, name)
	})
}

func (r *TagRepository) GetTagsForItem(ctx context.Context, itemID uint) *worker.Future[[]models.Tag] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) ([]models.Tag, error) {
		return r.store.ListTagsForItem(ctx, itemID)
	})
}

func (r *TagRepository) GetItemCountForTag(ctx context.Context, tagID uint) *worker.Future[int64] {
	return worker.Submit(ctx, r.queue, func(ctx context.Context) (int64, error) {
		return r.store.CountItemsForTag(ctx, tagID)
	})
}

func (r *TagRepository) WatchTags(ctx context.Context) *live.Subscription[[]models.Tag] {
	return r.store.WatchTags(ctx)
}

func (r *TagRepository) WatchTag(ctx context.Context, id uint) *live.Subscription[*models.Tag] {
	return r.store.WatchTag(ctx, id)
}

func (r *TagRepository) WatchTagsForItem(ctx context.Context, itemID uint) *live.Subscription[[]models.Tag] {
	return r.store.WatchTagsForItem(ctx, itemID)
}

func (r *TagRepository) WatchItemCountForTag(ctx context.Context, tagID uint) *live.Subscription[int64] {
	return r.store.WatchItemCountForTag(ctx, tagID)
}

func (r *TagRepository) Close(ctx context.Context) error {
	return r.queue.Close(ctx)
}
