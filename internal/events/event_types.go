package events

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/task-sync/internal/domain"
)

// EventType enumerates change event variants.
type EventType string

const (
	EventItemCreated EventType = "item_created"
	EventItemUpdated EventType = "item_updated"
	EventItemDeleted EventType = "item_deleted"
)

// ChangeEvent is an immutable record of one accepted mutation.
// Item is set for created/updated events, ItemID for every variant.
type ChangeEvent struct {
	Type   EventType
	ItemID int64
	Item   *domain.Item
}

// ItemCreated builds the event published after an insert.
func ItemCreated(item domain.Item) ChangeEvent {
	return ChangeEvent{Type: EventItemCreated, ItemID: item.ID, Item: &item}
}

// ItemUpdated builds the event published after an update.
func ItemUpdated(item domain.Item) ChangeEvent {
	return ChangeEvent{Type: EventItemUpdated, ItemID: item.ID, Item: &item}
}

// ItemDeleted builds the event published after a delete.
func ItemDeleted(id int64) ChangeEvent {
	return ChangeEvent{Type: EventItemDeleted, ItemID: id}
}

// ItemPayload is the wire form of an item.
type ItemPayload struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Category  *string   `json:"category"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItemPayload converts a domain item for serialization.
func NewItemPayload(item domain.Item) ItemPayload {
	return ItemPayload{
		ID:        item.ID,
		Title:     item.Title,
		Completed: item.Completed,
		Category:  item.Category,
		UserID:    item.OwnerID,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

type deletedPayload struct {
	Deleted int64 `json:"deleted"`
}

// MissedPayload tells a stream client that older events were dropped.
type MissedPayload struct {
	Missed uint64 `json:"missed"`
}

// MarshalJSON renders created/updated events as the item itself and deletes as {"deleted": id}.
func (e ChangeEvent) MarshalJSON() ([]byte, error) {
	if e.Type == EventItemDeleted || e.Item == nil {
		return json.Marshal(deletedPayload{Deleted: e.ItemID})
	}
	return json.Marshal(NewItemPayload(*e.Item))
}
