package dto

import (
	"github.com/spec-kit/task-sync/internal/domain"
	"github.com/spec-kit/task-sync/internal/events"
)

// CreateItemRequest payload.
type CreateItemRequest struct {
	Title     string  `json:"title"`
	Completed bool    `json:"completed"`
	Category  *string `json:"category"`
}

// UpdateItemRequest payload. Omitted and null fields keep their stored value.
type UpdateItemRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Category  *string `json:"category"`
}

// ItemResponse shares its wire form with stream events.
type ItemResponse = events.ItemPayload

// Draft converts the request to a domain draft.
func (r CreateItemRequest) Draft() domain.ItemDraft {
	return domain.ItemDraft{Title: r.Title, Completed: r.Completed, Category: r.Category}
}

// Patch converts the request to a domain patch.
func (r UpdateItemRequest) Patch() domain.ItemPatch {
	return domain.ItemPatch{Title: r.Title, Completed: r.Completed, Category: r.Category}
}

// NewItemResponse renders an item.
func NewItemResponse(item domain.Item) ItemResponse {
	return events.NewItemPayload(item)
}

// NewItemListResponse renders a list, never null.
func NewItemListResponse(items []domain.Item) []ItemResponse {
	result := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, NewItemResponse(item))
	}
	return result
}
