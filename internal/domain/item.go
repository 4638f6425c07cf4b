package domain

import "time"

// Item is a single entry in a user's list.
type Item struct {
	ID        int64
	Title     string
	Completed bool
	Category  *string
	OwnerID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemDraft carries the fields accepted when creating an item.
type ItemDraft struct {
	Title     string
	Completed bool
	Category  *string
}

// ItemPatch carries a partial update. Nil fields keep the stored value.
type ItemPatch struct {
	Title     *string
	Completed *bool
	Category  *string
}

// Apply merges the patch over item and returns the result.
func (p ItemPatch) Apply(item Item) Item {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Completed != nil {
		item.Completed = *p.Completed
	}
	if p.Category != nil {
		category := *p.Category
		item.Category = &category
	}
	return item
}
