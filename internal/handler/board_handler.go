package handler

import (
	"errors"
	"net/http"

	"chestnut/internal/middleware"
	"chestnut/internal/model"
	"chestnut/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BoardHandler struct {
	boardRepo       *repository.BoardRepository
	boardMemberRepo *repository.BoardMemberRepository
	memberRepo      repository.MemberRepositoryInterface
}

func NewBoardHandler(boardRepo *repository.BoardRepository, boardMemberRepo *repository.BoardMemberRepository, memberRepo repository.MemberRepositoryInterface) *BoardHandler {
	return &BoardHandler{boardRepo: boardRepo, boardMemberRepo: boardMemberRepo, memberRepo: memberRepo}
}

type BoardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type InviteRequest struct {
	MemberID string `json:"member_id" binding:"required,uuid"`
}

type BoardResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color,omitempty"`
	OwnerID     string   `json:"owner_id"`
	Members     []string `json:"members,omitempty"`
}

func toBoardResponse(board *model.Board) BoardResponse {
	return BoardResponse{
		ID:          board.ID.String(),
		Title:       board.Title,
		Description: board.Description,
		Color:       board.Color,
		OwnerID:     board.OwnerID.String(),
	}
}

func authenticatedMemberID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(middleware.MemberIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, false
	}
	memberID, ok := raw.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid member ID format"})
		return uuid.Nil, false
	}
	return memberID, true
}

func (h *BoardHandler) Create(c *gin.Context) {
	memberID, ok := authenticatedMemberID(c)
	if !ok {
		return
	}

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	board := &model.Board{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		OwnerID:     memberID,
	}
	if err := h.boardRepo.Create(c.Request.Context(), board); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create board"})
		return
	}

	c.JSON(http.StatusCreated, toBoardResponse(board))
}

// List returns the boards owned by the authenticated member
func (h *BoardHandler) List(c *gin.Context) {
	memberID, ok := authenticatedMemberID(c)
	if !ok {
		return
	}

	boards, err := h.boardRepo.GetOwned(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve boards"})
		return
	}

	response := make([]BoardResponse, len(boards))
	for i := range boards {
		response[i] = toBoardResponse(&boards[i])
	}
	c.JSON(http.StatusOK, response)
}

func (h *BoardHandler) GetByID(c *gin.Context) {
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	board, err := h.boardRepo.GetByID(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		}
		return
	}

	members, err := h.boardMemberRepo.GetByBoardID(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board members"})
		return
	}

	response := toBoardResponse(board)
	response.Members = make([]string, len(members))
	for i, bm := range members {
		response.Members[i] = bm.MemberID.String()
	}
	c.JSON(http.StatusOK, response)
}

func (h *BoardHandler) Update(c *gin.Context) {
	if _, ok := authenticatedMemberID(c); !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	board, err := h.boardRepo.GetByID(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		}
		return
	}

	board.Title = req.Title
	board.Description = req.Description
	board.Color = req.Color
	if err := h.boardRepo.Update(c.Request.Context(), board); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update board"})
		return
	}

	c.JSON(http.StatusOK, toBoardResponse(board))
}

func (h *BoardHandler) Delete(c *gin.Context) {
	if _, ok := authenticatedMemberID(c); !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	if err := h.boardRepo.Delete(c.Request.Context(), boardID); err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete board"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Board deleted successfully"})
}

// Invite adds a member to a board
func (h *BoardHandler) Invite(c *gin.Context) {
	if _, ok := authenticatedMemberID(c); !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	inviteeID, err := uuid.Parse(req.MemberID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID format"})
		return
	}

	if _, err := h.boardRepo.GetByID(c.Request.Context(), boardID); err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		}
		return
	}

	invitee, err := h.memberRepo.GetByID(c.Request.Context(), inviteeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve member"})
		return
	}
	if invitee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	already, err := h.boardMemberRepo.Exists(c.Request.Context(), boardID, inviteeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	if already {
		c.JSON(http.StatusConflict, gin.H{"error": "Member already on board"})
		return
	}

	bm := &model.BoardMember{BoardID: boardID, MemberID: inviteeID}
	if err := h.boardMemberRepo.Create(c.Request.Context(), bm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite member"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Member invited successfully"})
}
