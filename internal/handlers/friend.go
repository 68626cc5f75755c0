package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"friend-service/internal/models"
	"friend-service/internal/observability"
	"friend-service/internal/services"
	"friend-service/internal/telemetry"
)

// FriendManager is the friend request core the handlers adapt to HTTP.
type FriendManager interface {
	SendRequest(ctx context.Context, sender, recipientID int) (models.FriendRequest, error)
	RespondToRequest(ctx context.Context, responder, requestID int, action services.Action) (services.Outcome, error)
	ListFriends(ctx context.Context, user int) ([]int, error)
	ListPendingReceived(ctx context.Context, user int, page models.Page) ([]models.FriendRequest, error)
}

type userDirectory interface {
	BulkUsers(ctx context.Context, ids []int) ([]models.User, error)
}

// FriendHandler manages friend request endpoints.
type FriendHandler struct {
	manager   FriendManager
	directory userDirectory
	audit     *telemetry.AuditEmitter
}

// NewFriendHandler builds a FriendHandler.
func NewFriendHandler(manager FriendManager, directory userDirectory, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{
		manager:   manager,
		directory: directory,
		audit:     audit,
	}
}

// SendRequest handles POST /friend-request/send.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req struct {
		ToUserID int `json:"to_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to_user_id is required"})
		return
	}

	userID := c.GetInt("userID")
	created, err := h.manager.SendRequest(c.Request.Context(), userID, req.ToUserID)
	if err != nil {
		status, msg := sendErrorResponse(err)
		h.logFailure(c, status, "send friend request", err)
		h.emitAudit(c, "ERROR", msg, map[string]any{"to_user": req.ToUserID})
		c.JSON(status, gin.H{"error": msg})
		return
	}

	h.emitAudit(c, "INFO", "Friend request sent", map[string]any{"request_id": created.ID, "to_user": created.ToUserID})
	c.JSON(http.StatusCreated, created)
}

// ManageRequest handles POST /friend-request/manage.
func (h *FriendHandler) ManageRequest(c *gin.Context) {
	var req struct {
		RequestID int    `json:"request_id" binding:"required"`
		Action    string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := services.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	outcome, err := h.manager.RespondToRequest(c.Request.Context(), userID, req.RequestID, action)
	if err != nil {
		status, msg := respondErrorResponse(err)
		h.logFailure(c, status, "respond to friend request", err)
		h.emitAudit(c, "ERROR", msg, map[string]any{"request_id": req.RequestID, "action": string(action)})
		c.JSON(status, gin.H{"error": msg})
		return
	}

	text := "Friend request accepted"
	if outcome == services.OutcomeRejected {
		text = "Friend request rejected"
	}
	h.emitAudit(c, "INFO", text, map[string]any{"request_id": req.RequestID})
	c.JSON(http.StatusOK, gin.H{"status": text})
}

// ListFriends handles GET /friends.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := c.GetInt("userID")

	ids, err := h.manager.ListFriends(c.Request.Context(), userID)
	if err != nil {
		h.logFailure(c, http.StatusInternalServerError, "list friends", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}

	users, err := h.directory.BulkUsers(c.Request.Context(), ids)
	if err != nil {
		h.logFailure(c, http.StatusBadGateway, "load friend profiles", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
		return
	}

	byID := make(map[int]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	friends := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			friends = append(friends, u)
			continue
		}
		friends = append(friends, models.User{ID: id})
	}

	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ListPending handles GET /friend-requests/pending.
func (h *FriendHandler) ListPending(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	reqs, err := h.manager.ListPendingReceived(c.Request.Context(), userID, page)
	if err != nil {
		h.logFailure(c, http.StatusInternalServerError, "list pending requests", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friend requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

func sendErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrRecipientNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, services.ErrInvalidPair):
		return http.StatusBadRequest, "cannot send a friend request to yourself"
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests, "too many friend requests, try again later"
	case errors.Is(err, services.ErrAlreadyRequested):
		return http.StatusBadRequest, "Friend request already sent"
	default:
		return http.StatusInternalServerError, "could not send friend request"
	}
}

func respondErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound):
		return http.StatusNotFound, "Friend request not found"
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict, "Friend request already handled"
	case errors.Is(err, services.ErrInvalidAction):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "could not update friend request"
	}
}

func parsePage(c *gin.Context) (models.Page, bool) {
	page := models.Page{}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return models.Page{}, false
		}
		page.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return models.Page{}, false
		}
		page.Offset = offset
	}
	return page, true
}

func (h *FriendHandler) logFailure(c *gin.Context, status int, op string, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"op":         op,
		"status":     status,
		"user_id":    c.GetInt("userID"),
		"request_id": requestIDFromContext(c),
		"client_ip":  observability.IPFromRequest(c.Request),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("friend operation failed")
		return
	}
	entry.Warn("friend operation rejected")
}

func (h *FriendHandler) emitAudit(c *gin.Context, level, text string, fields map[string]any) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c), fields)
}
