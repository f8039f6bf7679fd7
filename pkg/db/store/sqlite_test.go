package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mwantia/memobox/pkg/db/models"
	"github.com/mwantia/memobox/pkg/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := OpenTempStore(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testFile(name string) models.ItemFile {
	return models.ItemFile{
		FilePath: "images/" + name,
		FileName: name,
		FileType: models.FileTypeImage,
		FileSize: 1500,
		MimeType: "image/png",
	}
}

func countRows(t *testing.T, s *SQLiteStore, table string, where string, args ...any) int64 {
	t.Helper()

	var count int64
	require.NoError(t, s.DB().Table(table).Where(where, args...).Count(&count).Error)
	return count
}

func TestHealth(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Health(context.Background()))
}

func TestMigrationStatusAndRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	statuses, err := s.MigrationStatus(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, status := range statuses {
		assert.True(t, status.Applied, "migration %d", status.Version)
	}

	require.NoError(t, s.Rollback(ctx))
	assert.False(t, s.DB().Migrator().HasTable("items"))

	require.NoError(t, s.Migrate(ctx))
	assert.True(t, s.DB().Migrator().HasTable("items"))
}

func TestCreateTag_DuplicateNameRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &models.Tag{Name: "Work", Color: "#ff0000"}
	require.NoError(t, s.CreateTag(ctx, first))
	assert.NotZero(t, first.ID)

	second := &models.Tag{Name: "Work", Color: "#00ff00"}
	err := s.CreateTag(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrConstraintViolation)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "#ff0000", tags[0].Color)
}

func TestCreateTag_CaseSensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTag(ctx, &models.Tag{Name: "work"}))
	require.NoError(t, s.CreateTag(ctx, &models.Tag{Name: "Work"}))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestCreateTag_EmptyName(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateTag(context.Background(), &models.Tag{Name: " "})
	assert.ErrorIs(t, err, errdefs.ErrConstraintViolation)
}

func TestCreateItemWithRelations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &models.Tag{Name: "Work"}
	require.NoError(t, s.CreateTag(ctx, tag))

	item := &models.Item{Title: "Groceries", Description: "buy milk"}
	files := []models.ItemFile{testFile("a.png"), testFile("b.png")}
	require.NoError(t, s.CreateItemWithRelations(ctx, item, files, []uint{tag.ID}))
	require.NotZero(t, item.ID)

	assert.Equal(t, item.ID, files[0].ItemID)
	assert.NotZero(t, files[1].ID)

	details, err := s.GetItemDetails(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, details.Files, 2)
	require.Len(t, details.Tags, 1)
	assert.Equal(t, "Work", details.Tags[0].Name)
	assert.False(t, details.CreatedAt.IsZero())
	assert.Nil(t, details.LastViewed)
}

func TestCreateItemWithRelations_MissingTagRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &models.Item{Description: "orphan"}
	err := s.CreateItemWithRelations(ctx, item, []models.ItemFile{testFile("a.png")}, []uint{42})
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrConstraintViolation)
	assert.Zero(t, item.ID)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, countRows(t, s, "files", "1 = 1"))
}

func TestCreateFile_RequiresLiveItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	file := testFile("a.png")
	file.ItemID = 99
	err := s.CreateFile(ctx, &file)
	assert.ErrorIs(t, err, errdefs.ErrConstraintViolation)

	incomplete := models.ItemFile{ItemID: 1}
	assert.ErrorIs(t, s.CreateFile(ctx, &incomplete), errdefs.ErrConstraintViolation)
}

func TestDeleteItem_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &models.Tag{Name: "Home"}
	require.NoError(t, s.CreateTag(ctx, tag))

	doomed := &models.Item{Description: "doomed"}
	require.NoError(t, s.CreateItemWithRelations(ctx, doomed,
		[]models.ItemFile{testFile("1.png"), testFile("2.png"), testFile("3.png")}, []uint{tag.ID}))

	kept := &models.Item{Description: "kept"}
	require.NoError(t, s.CreateItemWithRelations(ctx, kept,
		[]models.ItemFile{testFile("4.png")}, []uint{tag.ID}))

	require.NoError(t, s.DeleteItem(ctx, doomed.ID))

	_, err := s.GetItem(ctx, doomed.ID)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
	assert.Zero(t, countRows(t, s, "files", "item_id = ?", doomed.ID))
	assert.Zero(t, countRows(t, s, "item_tags", "item_id = ?", doomed.ID))

	assert.Equal(t, int64(1), countRows(t, s, "files", "item_id = ?", kept.ID))
	assert.Equal(t, int64(1), countRows(t, s, "item_tags", "item_id = ?", kept.ID))

	_, err = s.GetTag(ctx, tag.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.DeleteItem(ctx, doomed.ID), errdefs.ErrNotFound)
}

func TestDeleteTag_KeepsItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &models.Tag{Name: "Work"}
	require.NoError(t, s.CreateTag(ctx, tag))

	item := &models.Item{Description: "buy milk"}
	require.NoError(t, s.CreateItemWithRelations(ctx, item, nil, []uint{tag.ID}))

	require.NoError(t, s.DeleteTag(ctx, tag.ID))

	tags, err := s.ListTagsForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", got.Description)

	assert.ErrorIs(t, s.DeleteTag(ctx, tag.ID), errdefs.ErrNotFound)
}

func TestUpdateItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &models.Item{Title: "old", Description: "text"}
	require.NoError(t, s.CreateItem(ctx, item))
	created := item.CreatedAt

	item.Title = "new"
	item.UpdatedAt = time.Now().UTC().Add(time.Minute)
	require.NoError(t, s.UpdateItem(ctx, item))

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.WithinDuration(t, created, got.CreatedAt, time.Millisecond)

	missing := &models.Item{ID: 404, Description: "none"}
	assert.ErrorIs(t, s.UpdateItem(ctx, missing), errdefs.ErrNotFound)
	assert.ErrorIs(t, s.UpdateItem(ctx, &models.Item{}), errdefs.ErrNotFound)
}

func TestUpdateLastViewed_LeavesUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &models.Item{Description: "viewed"}
	require.NoError(t, s.CreateItem(ctx, item))

	before, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)

	viewedAt := time.Now().UTC().Add(time.Hour)
	require.NoError(t, s.UpdateLastViewed(ctx, item.ID, viewedAt))

	after, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastViewed)
	assert.WithinDuration(t, viewedAt, *after.LastViewed, time.Millisecond)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt))

	assert.ErrorIs(t, s.UpdateLastViewed(ctx, 999, viewedAt), errdefs.ErrNotFound)
}

func TestListRecentlyViewed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	var ids []uint
	for i := 0; i < 14; i++ {
		item := &models.Item{Description: fmt.Sprintf("item %d", i)}
		require.NoError(t, s.CreateItem(ctx, item))
		ids = append(ids, item.ID)
	}

	// Item 0 and 1 are never viewed
	for i := 2; i < 14; i++ {
		require.NoError(t, s.UpdateLastViewed(ctx, ids[i], base.Add(time.Duration(i)*time.Minute)))
	}

	recent, err := s.ListRecentlyViewed(ctx, 100)
	require.NoError(t, err)
	require.Len(t, recent, RecentlyViewedLimit)

	assert.Equal(t, ids[13], recent[0].ID)
	for i := 1; i < len(recent); i++ {
		require.NotNil(t, recent[i].LastViewed)
		assert.False(t, recent[i].LastViewed.After(*recent[i-1].LastViewed))
	}
	for _, item := range recent {
		assert.NotEqual(t, ids[0], item.ID)
		assert.NotEqual(t, ids[1], item.ID)
	}

	few, err := s.ListRecentlyViewed(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, few, 3)
}

func TestListItems_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 3; i++ {
		item := &models.Item{Description: fmt.Sprintf("item %d", i)}
		require.NoError(t, s.CreateItem(ctx, item))
		ids = append(ids, item.ID)
	}

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, ids[2], items[0].ID)
	assert.Equal(t, ids[0], items[2].ID)
}

func TestListItems_OrdersAcrossZones(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 10:00 at +05:00 is 05:00 UTC, an hour before "newer"
	zone := time.FixedZone("UTC+5", 5*60*60)
	older := &models.Item{Description: "older", CreatedAt: time.Date(2026, 1, 1, 10, 0, 0, 0, zone)}
	newer := &models.Item{Description: "newer", CreatedAt: time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreateItemWithRelations(ctx, older, nil, nil))
	require.NoError(t, s.CreateItem(ctx, newer))

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].Description)
	assert.Equal(t, "older", items[1].Description)
	assert.True(t, items[1].CreatedAt.Equal(time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)))
}

func TestListItemsByTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	work := &models.Tag{Name: "Work"}
	home := &models.Tag{Name: "Home"}
	require.NoError(t, s.CreateTag(ctx, work))
	require.NoError(t, s.CreateTag(ctx, home))

	a := &models.Item{Description: "a"}
	b := &models.Item{Description: "b"}
	c := &models.Item{Description: "c"}
	require.NoError(t, s.CreateItemWithRelations(ctx, a, nil, []uint{work.ID}))
	require.NoError(t, s.CreateItemWithRelations(ctx, b, nil, []uint{home.ID}))
	require.NoError(t, s.CreateItemWithRelations(ctx, c, nil, []uint{work.ID, home.ID}))

	items, err := s.ListItemsByTag(ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, c.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	require.NoError(t, s.RemoveItemTag(ctx, c.ID, work.ID))

	items, err = s.ListItemsByTag(ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	_, err = s.GetItem(ctx, c.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.RemoveItemTag(ctx, c.ID, work.ID), errdefs.ErrNotFound)
}

func TestItemTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag := &models.Tag{Name: "Work"}
	require.NoError(t, s.CreateTag(ctx, tag))
	item := &models.Item{Description: "x"}
	require.NoError(t, s.CreateItem(ctx, item))

	require.NoError(t, s.AddItemTag(ctx, item.ID, tag.ID))
	assert.ErrorIs(t, s.AddItemTag(ctx, item.ID, tag.ID), errdefs.ErrConstraintViolation)
	assert.ErrorIs(t, s.AddItemTag(ctx, item.ID, 777), errdefs.ErrConstraintViolation)

	count, err := s.CountItemsForTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, s.RemoveItemTag(ctx, item.ID, tag.ID))
	assert.ErrorIs(t, s.RemoveItemTag(ctx, item.ID, tag.ID), errdefs.ErrNotFound)
	count, err = s.CountItemsForTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdateTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	work := &models.Tag{Name: "Work"}
	home := &models.Tag{Name: "Home"}
	require.NoError(t, s.CreateTag(ctx, work))
	require.NoError(t, s.CreateTag(ctx, home))

	work.Color = "#123456"
	require.NoError(t, s.UpdateTag(ctx, work))

	got, err := s.GetTagByName(ctx, "Work")
	require.NoError(t, err)
	assert.Equal(t, "#123456", got.Color)

	home.Name = "Work"
	assert.ErrorIs(t, s.UpdateTag(ctx, home), errdefs.ErrConstraintViolation)

	assert.ErrorIs(t, s.UpdateTag(ctx, &models.Tag{ID: 99, Name: "x"}), errdefs.ErrNotFound)

	_, err = s.GetTagByName(ctx, "missing")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestFileQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	text := models.ItemFile{
		FilePath: "texts/n.txt",
		FileName: "n.txt",
		FileType: models.FileTypeText,
		FileSize: 8,
		MimeType: "text/plain",
	}
	item := &models.Item{Description: "x"}
	require.NoError(t, s.CreateItemWithRelations(ctx, item, []models.ItemFile{testFile("p.png"), text}, nil))

	images, err := s.ListFilesByType(ctx, models.FileTypeImage)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "p.png", images[0].FileName)

	paths, err := s.ListFilePaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"images/p.png", "texts/n.txt"}, paths)

	files, err := s.ListFilesByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestWatchItemsByTag_PushesOnChange(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tag := &models.Tag{Name: "Work"}
	require.NoError(t, s.CreateTag(ctx, tag))

	sub := s.WatchItemsByTag(ctx, tag.ID)
	defer sub.Close()

	u, ok := sub.Next(ctx)
	require.True(t, ok)
	require.NoError(t, u.Err)
	assert.Empty(t, u.Value)

	item := &models.Item{Description: "buy milk"}
	require.NoError(t, s.CreateItemWithRelations(ctx, item, nil, []uint{tag.ID}))

	for {
		u, ok = sub.Next(ctx)
		require.True(t, ok)
		require.NoError(t, u.Err)
		if len(u.Value) == 1 {
			break
		}
	}
	assert.Equal(t, item.ID, u.Value[0].ID)

	// Deleting the tag cascades into item_tags
	require.NoError(t, s.DeleteTag(ctx, tag.ID))
	for {
		u, ok = sub.Next(ctx)
		require.True(t, ok)
		if len(u.Value) == 0 {
			break
		}
	}
}

func TestWatchItemCountForTag_FollowsItemCascade(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tag := &models.Tag{Name: "Work"}
	require.NoError(t, s.CreateTag(ctx, tag))
	item := &models.Item{Description: "x"}
	require.NoError(t, s.CreateItemWithRelations(ctx, item, nil, []uint{tag.ID}))

	sub := s.WatchItemCountForTag(ctx, tag.ID)
	defer sub.Close()

	u, ok := sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(1), u.Value)

	require.NoError(t, s.DeleteItem(ctx, item.ID))
	for {
		u, ok = sub.Next(ctx)
		require.True(t, ok)
		if u.Value == 0 {
			break
		}
	}
}

func TestClose_EndsSubscriptions(t *testing.T) {
	s, err := OpenTempStore(context.Background(), t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := s.WatchTags(ctx)
	_, ok := sub.Next(ctx)
	require.True(t, ok)

	require.NoError(t, s.Close())

	_, ok = sub.Next(ctx)
	assert.False(t, ok)
}
