package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/spec-kit/task-sync/internal/domain"
	"github.com/spec-kit/task-sync/internal/events"
	apperrors "github.com/spec-kit/task-sync/pkg/util/errorutil"
)

var (
	alice = domain.Identity{SubjectID: 1}
	bob   = domain.Identity{SubjectID: 2}
)

func newItemFixture() (*ItemService, *fakeItemRepo, *recordingPublisher) {
	repo := newFakeItemRepo()
	pub := &recordingPublisher{}
	svc := NewItemService(ItemDependencies{ItemRepo: repo, Publisher: pub})
	return svc, repo, pub
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return de.Code
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateItemPublishesOnce(t *testing.T) {
	svc, _, pub := newItemFixture()

	item, err := svc.CreateItem(context.Background(), alice, domain.ItemDraft{Title: "  buy milk ", Category: strPtr("errands")})
	assert.Equal(t, err, nil)
	assert.Equal(t, item.Title, "buy milk")
	assert.Equal(t, item.OwnerID, int64(1))
	assert.NotEqual(t, item.ID, int64(0))

	published := pub.published()
	assert.Equal(t, len(published), 1)
	assert.Equal(t, published[0].Type, events.EventItemCreated)
	assert.Equal(t, published[0].Item.ID, item.ID)
	assert.Equal(t, *published[0].Item.Category, "errands")
}

func TestCreateItemStoreFailureDoesNotPublish(t *testing.T) {
	svc, repo, pub := newItemFixture()
	repo.createErr = errors.New("connection reset by peer")

	_, err := svc.CreateItem(context.Background(), alice, domain.ItemDraft{Title: "x"})
	assert.Equal(t, errorCode(t, err), "INTERNAL_ERROR")
	assert.Equal(t, apperrors.ToDomainError(err).HTTPStatus, http.StatusInternalServerError)
	assert.Equal(t, len(pub.published()), 0)
}

func TestCreateItemRequiresTitle(t *testing.T) {
	svc, _, pub := newItemFixture()

	_, err := svc.CreateItem(context.Background(), alice, domain.ItemDraft{Title: "   "})
	assert.Equal(t, errorCode(t, err), "VALIDATION_FAILED")
	assert.Equal(t, len(pub.published()), 0)
}

func TestUpdateItemMergesPatch(t *testing.T) {
	svc, _, pub := newItemFixture()
	ctx := context.Background()
	created, err := svc.CreateItem(ctx, alice, domain.ItemDraft{Title: "A", Category: strPtr("work")})
	assert.Equal(t, err, nil)

	updated, err := svc.UpdateItem(ctx, alice, created.ID, domain.ItemPatch{Completed: boolPtr(true)})
	assert.Equal(t, err, nil)
	assert.Equal(t, updated.Title, "A")
	assert.Equal(t, updated.Completed, true)
	assert.Equal(t, *updated.Category, "work")
	assert.Equal(t, updated.CreatedAt, created.CreatedAt)

	published := pub.published()
	assert.Equal(t, len(published), 2)
	assert.Equal(t, published[1].Type, events.EventItemUpdated)
	assert.Equal(t, published[1].Item.Completed, true)
	assert.Equal(t, published[1].Item.Title, "A")
}

func TestUpdateItemMissing(t *testing.T) {
	svc, _, pub := newItemFixture()

	_, err := svc.UpdateItem(context.Background(), alice, 404, domain.ItemPatch{Title: strPtr("x")})
	assert.Equal(t, errorCode(t, err), "NOT_FOUND")
	assert.Equal(t, len(pub.published()), 0)
}

func TestUpdateItemRejectsOtherOwner(t *testing.T) {
	svc, repo, pub := newItemFixture()
	ctx := context.Background()
	created, err := svc.CreateItem(ctx, alice, domain.ItemDraft{Title: "mine"})
	assert.Equal(t, err, nil)

	_, err = svc.UpdateItem(ctx, bob, created.ID, domain.ItemPatch{Title: strPtr("hijacked")})
	assert.Equal(t, errorCode(t, err), "NOT_FOUND")

	stored, _ := repo.GetByID(ctx, created.ID)
	assert.Equal(t, stored.Title, "mine")
	assert.Equal(t, len(pub.published()), 1)
}

func TestUpdateItemStoreFailureDoesNotPublish(t *testing.T) {
	svc, repo, pub := newItemFixture()
	ctx := context.Background()
	created, err := svc.CreateItem(ctx, alice, domain.ItemDraft{Title: "a"})
	assert.Equal(t, err, nil)
	repo.updateErr = errors.New("deadlock detected")

	_, err = svc.UpdateItem(ctx, alice, created.ID, domain.ItemPatch{Completed: boolPtr(true)})
	assert.Equal(t, errorCode(t, err), "INTERNAL_ERROR")
	assert.Equal(t, len(pub.published()), 1)
}

func TestUpdateItemRejectsEmptyTitle(t *testing.T) {
	svc, _, _ := newItemFixture()
	ctx := context.Background()
	created, err := svc.CreateItem(ctx, alice, domain.ItemDraft{Title: "a"})
	assert.Equal(t, err, nil)

	_, err = svc.UpdateItem(ctx, alice, created.ID, domain.ItemPatch{Title: strPtr("")})
	assert.Equal(t, errorCode(t, err), "VALIDATION_FAILED")
}

func TestDeleteItem(t *testing.T) {
	svc, _, pub := newItemFixture()
	ctx := context.Background()
	created, err := svc.CreateItem(ctx, alice, domain.ItemDraft{Title: "a"})
	assert.Equal(t, err, nil)

	deleted, err := svc.DeleteItem(ctx, bob, created.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, deleted, false)

	deleted, err = svc.DeleteItem(ctx, alice, created.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, deleted, true)

	published := pub.published()
	assert.Equal(t, len(published), 2)
	assert.Equal(t, published[1].Type, events.EventItemDeleted)
	assert.Equal(t, published[1].ItemID, created.ID)
}

func TestDeleteMissingItemNeverPublishes(t *testing.T) {
	svc, _, pub := newItemFixture()

	for i := 0; i < 2; i++ {
		deleted, err := svc.DeleteItem(context.Background(), alice, 77)
		assert.Equal(t, err, nil)
		assert.Equal(t, deleted, false)
	}
	assert.Equal(t, len(pub.published()), 0)
}

func TestDeleteItemStoreFailure(t *testing.T) {
	svc, repo, pub := newItemFixture()
	repo.deleteErr = errors.New("timeout")

	_, err := svc.DeleteItem(context.Background(), alice, 1)
	assert.Equal(t, errorCode(t, err), "INTERNAL_ERROR")
	assert.Equal(t, len(pub.published()), 0)
}

func TestListItemsNewestFirst(t *testing.T) {
	svc, repo, _ := newItemFixture()
	ctx := context.Background()
	for _, title := range []string{"first", "second", "third"} {
		_, err := svc.CreateItem(ctx, alice, domain.ItemDraft{Title: title})
		assert.Equal(t, err, nil)
	}
	_, err := svc.CreateItem(ctx, bob, domain.ItemDraft{Title: "bob's"})
	assert.Equal(t, err, nil)

	items, err := svc.ListItems(ctx, alice)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(items), 3)
	assert.Equal(t, items[0].Title, "third")
	assert.Equal(t, items[2].Title, "first")

	repo.listErr = errors.New("boom")
	_, err = svc.ListItems(ctx, alice)
	assert.Equal(t, errorCode(t, err), "INTERNAL_ERROR")
}

func TestMutationEnqueuedBeforeReturn(t *testing.T) {
	bus := events.NewBus(events.DefaultBacklog)
	subs := make([]*events.Subscription, 3)
	for i := range subs {
		subs[i] = bus.Subscribe()
		defer subs[i].Close()
	}
	svc := NewItemService(ItemDependencies{ItemRepo: newFakeItemRepo(), Publisher: bus})

	item, err := svc.CreateItem(context.Background(), alice, domain.ItemDraft{Title: "sync"})
	assert.Equal(t, err, nil)

	for _, sub := range subs {
		assert.Equal(t, sub.Pending(), 1)
		event, missed, err := sub.Next(context.Background())
		assert.Equal(t, err, nil)
		assert.Equal(t, missed, uint64(0))
		assert.Equal(t, event.Type, events.EventItemCreated)
		assert.Equal(t, event.ItemID, item.ID)
	}
}

func TestNewItemServiceRequiresPublisher(t *testing.T) {
	assert.PanicMatches(t, func() {
		NewItemService(ItemDependencies{ItemRepo: newFakeItemRepo()})
	}, "service: item service requires a publisher")
}
