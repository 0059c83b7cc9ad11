package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chestnut/internal/middleware"
	"chestnut/internal/repository"
	"chestnut/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CardService is the slice of the card service the handler needs.
type CardService interface {
	CreateCard(ctx context.Context, columnID uuid.UUID, in service.CardCreate) (*service.CardDetail, error)
	GetCard(ctx context.Context, cardID uuid.UUID) (*service.CardDetail, error)
	ListCardsByColumn(ctx context.Context, columnID uuid.UUID) ([]service.CardDetail, error)
	UpdateCard(ctx context.Context, cardID uuid.UUID, patch service.CardPatch) (*service.CardDetail, error)
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
	UpdateWorkers(ctx context.Context, cardID uuid.UUID, add, remove []uuid.UUID) (*service.CardDetail, error)
	MoveCard(ctx context.Context, cardID uuid.UUID, moveTo service.MoveTo) (*service.CardDetail, error)
}

var _ CardService = (*service.CardService)(nil)

type CardHandler struct {
	svc CardService
}

func NewCardHandler(svc CardService) *CardHandler {
	return &CardHandler{svc: svc}
}

// CardCreateRequest is the card construction payload
type CardCreateRequest struct {
	Title           string     `json:"title" binding:"required,max=50"`
	Description     string     `json:"description"`
	BackgroundColor string     `json:"background_color"`
	Deadline        *time.Time `json:"deadline"`
	StartAt         *time.Time `json:"start_at"`
}

// CardUpdateRequest is a partial update: absent fields stay unchanged
type CardUpdateRequest struct {
	Title           *string    `json:"title" binding:"omitempty,max=50"`
	Description     *string    `json:"description"`
	BackgroundColor *string    `json:"background_color"`
	Deadline        *time.Time `json:"deadline"`
	StartAt         *time.Time `json:"start_at"`
}

// CardMoveRequest is the movement target
type CardMoveRequest struct {
	ColumnID string `json:"column_id" binding:"required,uuid"`
	Position *int   `json:"position" binding:"required,min=0"`
}

// WorkerSet wraps a list of member IDs for the worker update payload
type WorkerSet struct {
	Workers []string `json:"workers" binding:"required,dive,uuid"`
}

// WorkerUpdateRequest carries the optional add and remove sets
type WorkerUpdateRequest struct {
	Add    *WorkerSet `json:"add"`
	Remove *WorkerSet `json:"remove"`
}

// CardResponse is the card payload with its resolved worker id list
type CardResponse struct {
	ID              string   `json:"id"`
	ColumnID        string   `json:"column_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	BackgroundColor string   `json:"background_color,omitempty"`
	Deadline        *string  `json:"deadline,omitempty"`
	StartAt         *string  `json:"start_at,omitempty"`
	Position        int      `json:"position"`
	Workers         []string `json:"workers"`
}

func toCardResponse(detail *service.CardDetail) CardResponse {
	card := detail.Card
	resp := CardResponse{
		ID:              card.ID.String(),
		ColumnID:        card.ColumnID.String(),
		Title:           card.Title,
		Description:     card.Description,
		BackgroundColor: card.BackgroundColor,
		Position:        card.Position,
		Workers:         make([]string, len(detail.WorkerIDs)),
	}
	if card.Deadline != nil {
		deadline := card.Deadline.Format(time.RFC3339)
		resp.Deadline = &deadline
	}
	if card.StartAt != nil {
		startAt := card.StartAt.Format(time.RFC3339)
		resp.StartAt = &startAt
	}
	for i, id := range detail.WorkerIDs {
		resp.Workers[i] = id.String()
	}
	return resp
}

// respondCardError maps service failures onto distinct status codes so
// callers can branch without matching messages.
func respondCardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
	case errors.Is(err, repository.ErrColumnNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Column not found"})
	case errors.Is(err, service.ErrWorkerAlreadyAssigned):
		c.JSON(http.StatusConflict, gin.H{"error": "Worker already assigned"})
	case errors.Is(err, service.ErrWorkerNotAssigned):
		c.JSON(http.StatusConflict, gin.H{"error": "Worker not assigned"})
	case errors.Is(err, service.ErrMoveLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "Card is being moved by another request"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// Create creates a new card in a column
func (h *CardHandler) Create(c *gin.Context) {
	if _, exists := c.Get(middleware.MemberIDKey); !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	columnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}

	var req CardCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	detail, err := h.svc.CreateCard(c.Request.Context(), columnID, service.CardCreate{
		Title:           req.Title,
		Description:     req.Description,
		BackgroundColor: req.BackgroundColor,
		Deadline:        req.Deadline,
		StartAt:         req.StartAt,
	})
	if err != nil {
		respondCardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCardResponse(detail))
}

// GetByID retrieves a card with its workers
func (h *CardHandler) GetByID(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	detail, err := h.svc.GetCard(c.Request.Context(), cardID)
	if err != nil {
		respondCardError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCardResponse(detail))
}

// GetByColumnID lists the cards of a column in position order
func (h *CardHandler) GetByColumnID(c *gin.Context) {
	columnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}

	details, err := h.svc.ListCardsByColumn(c.Request.Context(), columnID)
	if err != nil {
		respondCardError(c, err)
		return
	}

	response := make([]CardResponse, len(details))
	for i := range details {
		response[i] = toCardResponse(&details[i])
	}
	c.JSON(http.StatusOK, response)
}

// Update applies a partial update to a card
func (h *CardHandler) Update(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	var req CardUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	detail, err := h.svc.UpdateCard(c.Request.Context(), cardID, service.CardPatch{
		Title:           req.Title,
		Description:     req.Description,
		BackgroundColor: req.BackgroundColor,
		Deadline:        req.Deadline,
		StartAt:         req.StartAt,
	})
	if err != nil {
		respondCardError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCardResponse(detail))
}

// Delete soft-deletes a card and removes its worker assignments
func (h *CardHandler) Delete(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	if err := h.svc.DeleteCard(c.Request.Context(), cardID); err != nil {
		respondCardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Card deleted successfully"})
}

// Move repositions a card, serialized against all other moves
func (h *CardHandler) Move(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	var req CardMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	columnID, err := uuid.Parse(req.ColumnID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}

	detail, err := h.svc.MoveCard(c.Request.Context(), cardID, service.MoveTo{
		ColumnID: columnID,
		Position: *req.Position,
	})
	if err != nil {
		respondCardError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCardResponse(detail))
}

// UpdateWorkers reconciles the card's worker set with the requested add
// and remove sets
func (h *CardHandler) UpdateWorkers(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	var req WorkerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	add, err := parseWorkerSet(req.Add)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID in add set"})
		return
	}
	remove, err := parseWorkerSet(req.Remove)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID in remove set"})
		return
	}

	detail, err := h.svc.UpdateWorkers(c.Request.Context(), cardID, add, remove)
	if err != nil {
		respondCardError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCardResponse(detail))
}

// parseWorkerSet keeps the absent/present distinction: a nil set stays nil
// so the service skips that phase entirely.
func parseWorkerSet(set *WorkerSet) ([]uuid.UUID, error) {
	if set == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(set.Workers))
	for i, raw := range set.Workers {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
