package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-sync/internal/api/dto"
	"github.com/spec-kit/task-sync/internal/auth"
	"github.com/spec-kit/task-sync/internal/service"
	apperrors "github.com/spec-kit/task-sync/pkg/util/errorutil"
)

// ItemsHandler serves the item list endpoints. Every handler verifies the
// bearer token before reading the body or touching the store.
type ItemsHandler struct {
	items    *service.ItemService
	verifier *auth.Verifier
}

// NewItemsHandler constructs handler.
func NewItemsHandler(items *service.ItemService, verifier *auth.Verifier) *ItemsHandler {
	return &ItemsHandler{items: items, verifier: verifier}
}

// List GET /items.
func (h *ItemsHandler) List(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c, h.verifier)
	if err != nil {
		return err
	}
	items, err := h.items.ListItems(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewItemListResponse(items)})
}

// Create POST /items.
func (h *ItemsHandler) Create(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c, h.verifier)
	if err != nil {
		return err
	}
	var req dto.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	item, err := h.items.CreateItem(c.UserContext(), identity, req.Draft())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewItemResponse(*item)})
}

// Update PATCH /items/:id.
func (h *ItemsHandler) Update(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c, h.verifier)
	if err != nil {
		return err
	}
	id, err := itemID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	item, err := h.items.UpdateItem(c.UserContext(), identity, id, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewItemResponse(*item)})
}

// Delete DELETE /items/:id.
func (h *ItemsHandler) Delete(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c, h.verifier)
	if err != nil {
		return err
	}
	id, err := itemID(c)
	if err != nil {
		return err
	}

	deleted, err := h.items.DeleteItem(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFound("item", map[string]any{"id": id})
	}
	return c.SendStatus(http.StatusNoContent)
}

func itemID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid item id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}
