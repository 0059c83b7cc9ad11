package handler

import (
	"errors"
	"net/http"
	"time"

	"chestnut/internal/model"
	"chestnut/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CommentHandler struct {
	commentRepo *repository.CommentRepository
	cardRepo    *repository.CardRepository
}

func NewCommentHandler(commentRepo *repository.CommentRepository, cardRepo *repository.CardRepository) *CommentHandler {
	return &CommentHandler{commentRepo: commentRepo, cardRepo: cardRepo}
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID        string `json:"id"`
	CardID    string `json:"card_id"`
	MemberID  string `json:"member_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Create adds a comment to a live card
func (h *CommentHandler) Create(c *gin.Context) {
	memberID, ok := authenticatedMemberID(c)
	if !ok {
		return
	}

	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.cardRepo.GetByID(c.Request.Context(), cardID); err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve card"})
		}
		return
	}

	comment := &model.Comment{
		CardID:   cardID,
		MemberID: memberID,
		Content:  req.Content,
	}
	if err := h.commentRepo.Create(c.Request.Context(), comment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	c.JSON(http.StatusCreated, CommentResponse{
		ID:        comment.ID.String(),
		CardID:    comment.CardID.String(),
		MemberID:  comment.MemberID.String(),
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt.Format(time.RFC3339),
	})
}

// GetByCardID lists the comments of a card, oldest first
func (h *CommentHandler) GetByCardID(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	if _, err := h.cardRepo.GetByID(c.Request.Context(), cardID); err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve card"})
		}
		return
	}

	comments, err := h.commentRepo.GetByCardID(c.Request.Context(), cardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	response := make([]CommentResponse, len(comments))
	for i, comment := range comments {
		response[i] = CommentResponse{
			ID:        comment.ID.String(),
			CardID:    comment.CardID.String(),
			MemberID:  comment.MemberID.String(),
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, response)
}
