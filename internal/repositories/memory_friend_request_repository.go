package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"friend-service/internal/models"
)

type pairKey struct {
	from int
	to   int
}

// MemoryFriendRequestRepo keeps friend requests in process memory. It is only
// safe for a single service instance.
type MemoryFriendRequestRepo struct {
	mu     sync.RWMutex
	nextID int
	byID   map[int]models.FriendRequest
	byPair map[pairKey]int
}

// NewMemoryFriendRequestRepo constructs an empty MemoryFriendRequestRepo.
func NewMemoryFriendRequestRepo() *MemoryFriendRequestRepo {
	return &MemoryFriendRequestRepo{
		byID:   make(map[int]models.FriendRequest),
		byPair: make(map[pairKey]int),
	}
}

// Create checks the pair and inserts under the same lock.
func (r *MemoryFriendRequestRepo) Create(ctx context.Context, fromUserID, toUserID int, createdAt time.Time) (models.FriendRequest, error) {
	if fromUserID == toUserID {
		return models.FriendRequest{}, ErrInvalidPair
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{from: fromUserID, to: toUserID}
	if _, ok := r.byPair[key]; ok {
		return models.FriendRequest{}, ErrFriendRequestExists
	}

	r.nextID++
	req := models.FriendRequest{
		ID:         r.nextID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     models.FriendRequestPending,
		CreatedAt:  createdAt,
	}
	r.byID[req.ID] = req
	r.byPair[key] = req.ID
	return req, nil
}

// Exists reports whether a request for the ordered pair exists in any status.
func (r *MemoryFriendRequestRepo) Exists(ctx context.Context, fromUserID, toUserID int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPair[pairKey{from: fromUserID, to: toUserID}]
	return ok, nil
}

// GetForRecipient fetches a request only if it is addressed to toUserID.
func (r *MemoryFriendRequestRepo) GetForRecipient(ctx context.Context, requestID, toUserID int) (models.FriendRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.byID[requestID]
	if !ok || req.ToUserID != toUserID {
		return models.FriendRequest{}, ErrFriendRequestNotFound
	}
	return req, nil
}

// Accept flips a pending request to accepted.
func (r *MemoryFriendRequestRepo) Accept(ctx context.Context, req models.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[req.ID]
	if !ok || stored.ToUserID != req.ToUserID || !stored.IsPending() {
		return ErrFriendRequestNotPending
	}
	stored.Status = models.FriendRequestAccepted
	r.byID[req.ID] = stored
	return nil
}

// Delete removes a pending request permanently.
func (r *MemoryFriendRequestRepo) Delete(ctx context.Context, req models.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[req.ID]
	if !ok || stored.ToUserID != req.ToUserID || !stored.IsPending() {
		return ErrFriendRequestNotPending
	}
	delete(r.byID, stored.ID)
	delete(r.byPair, pairKey{from: stored.FromUserID, to: stored.ToUserID})
	return nil
}

// CountRecentFrom counts requests sent by fromUserID at or after since, regardless of status.
func (r *MemoryFriendRequestRepo) CountRecentFrom(ctx context.Context, fromUserID int, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, req := range r.byID {
		if req.FromUserID == fromUserID && !req.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// FriendsOf returns recipients of accepted requests sent by userID.
func (r *MemoryFriendRequestRepo) FriendsOf(ctx context.Context, userID int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accepted := make([]models.FriendRequest, 0)
	for _, req := range r.byID {
		if req.FromUserID == userID && req.Status == models.FriendRequestAccepted {
			accepted = append(accepted, req)
		}
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].ID < accepted[j].ID })

	ids := make([]int, 0, len(accepted))
	for _, req := range accepted {
		ids = append(ids, req.ToUserID)
	}
	return ids, nil
}

// PendingReceivedBy returns pending requests addressed to userID, oldest first.
func (r *MemoryFriendRequestRepo) PendingReceivedBy(ctx context.Context, userID int, page models.Page) ([]models.FriendRequest, error) {
	r.mu.RLock()
	pending := make([]models.FriendRequest, 0)
	for _, req := range r.byID {
		if req.ToUserID == userID && req.IsPending() {
			pending = append(pending, req)
		}
	}
	r.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	offset := max(page.Offset, 0)
	if offset >= len(pending) {
		return []models.FriendRequest{}, nil
	}
	pending = pending[offset:]
	if page.Limit > 0 && page.Limit < len(pending) {
		pending = pending[:page.Limit]
	}
	return pending, nil
}
