package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"friend-service/internal/models"
)

var (
	ErrFriendRequestNotFound   = errors.New("friend request not found")
	ErrFriendRequestExists     = errors.New("friend request already exists")
	ErrFriendRequestNotPending = errors.New("friend request is not pending")
	ErrInvalidPair             = errors.New("cannot send a friend request to yourself")
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// FriendRequestRepository abstracts friend request persistence.
//
// Create must enforce the one-request-per-ordered-pair rule at write time:
// two concurrent creates for the same pair yield one success and one
// ErrFriendRequestExists.
type FriendRequestRepository interface {
	Create(ctx context.Context, fromUserID, toUserID int, createdAt time.Time) (models.FriendRequest, error)
	Exists(ctx context.Context, fromUserID, toUserID int) (bool, error)
	GetForRecipient(ctx context.Context, requestID, toUserID int) (models.FriendRequest, error)
	Accept(ctx context.Context, req models.FriendRequest) error
	Delete(ctx context.Context, req models.FriendRequest) error
	CountRecentFrom(ctx context.Context, fromUserID int, since time.Time) (int, error)
	FriendsOf(ctx context.Context, userID int) ([]int, error)
	PendingReceivedBy(ctx context.Context, userID int, page models.Page) ([]models.FriendRequest, error)
}

// FriendRequestRepo is a sqlx implementation of FriendRequestRepository.
type FriendRequestRepo struct {
	db *sqlx.DB
}

// NewFriendRequestRepo constructs a FriendRequestRepo.
func NewFriendRequestRepo(db *sqlx.DB) *FriendRequestRepo {
	return &FriendRequestRepo{db: db}
}

// Create inserts a pending request. The UNIQUE(from_user_id, to_user_id) and
// CHECK(from_user_id <> to_user_id) constraints decide conflicts.
func (r *FriendRequestRepo) Create(ctx context.Context, fromUserID, toUserID int, createdAt time.Time) (models.FriendRequest, error) {
	if fromUserID == toUserID {
		return models.FriendRequest{}, ErrInvalidPair
	}

	var req models.FriendRequest
	err := r.db.QueryRowxContext(ctx, `INSERT INTO friend_requests (from_user_id, to_user_id, status, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, from_user_id, to_user_id, status, created_at`,
		fromUserID, toUserID, models.FriendRequestPending, createdAt).StructScan(&req)
	if err != nil {
		return models.FriendRequest{}, translateWriteError(err)
	}
	return req, nil
}

// Exists reports whether a request for the ordered pair exists in any status.
func (r *FriendRequestRepo) Exists(ctx context.Context, fromUserID, toUserID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM friend_requests WHERE from_user_id=$1 AND to_user_id=$2)`, fromUserID, toUserID)
	return exists, err
}

// GetForRecipient fetches a request only if it is addressed to toUserID.
func (r *FriendRequestRepo) GetForRecipient(ctx context.Context, requestID, toUserID int) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req, `SELECT id, from_user_id, to_user_id, status, created_at
        FROM friend_requests WHERE id=$1 AND to_user_id=$2`, requestID, toUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, ErrFriendRequestNotFound
	}
	return req, err
}

// Accept flips a pending request to accepted.
func (r *FriendRequestRepo) Accept(ctx context.Context, req models.FriendRequest) error {
	res, err := r.db.ExecContext(ctx, `UPDATE friend_requests SET status=$1 WHERE id=$2 AND to_user_id=$3 AND status=$4`,
		models.FriendRequestAccepted, req.ID, req.ToUserID, models.FriendRequestPending)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes a pending request permanently.
func (r *FriendRequestRepo) Delete(ctx context.Context, req models.FriendRequest) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM friend_requests WHERE id=$1 AND to_user_id=$2 AND status=$3`,
		req.ID, req.ToUserID, models.FriendRequestPending)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// CountRecentFrom counts requests sent by fromUserID at or after since, regardless of status.
func (r *FriendRequestRepo) CountRecentFrom(ctx context.Context, fromUserID int, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM friend_requests WHERE from_user_id=$1 AND created_at >= $2`, fromUserID, since)
	return count, err
}

// FriendsOf returns recipients of accepted requests sent by userID.
func (r *FriendRequestRepo) FriendsOf(ctx context.Context, userID int) ([]int, error) {
	ids := []int{}
	err := r.db.SelectContext(ctx, &ids, `SELECT to_user_id FROM friend_requests WHERE from_user_id=$1 AND status=$2 ORDER BY id ASC`,
		userID, models.FriendRequestAccepted)
	return ids, err
}

// PendingReceivedBy returns pending requests addressed to userID, oldest first.
func (r *FriendRequestRepo) PendingReceivedBy(ctx context.Context, userID int, page models.Page) ([]models.FriendRequest, error) {
	query := `SELECT id, from_user_id, to_user_id, status, created_at FROM friend_requests
        WHERE to_user_id=$1 AND status=$2
        ORDER BY created_at ASC, id ASC`
	args := []any{userID, models.FriendRequestPending}
	if page.Limit > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, page.Limit, page.Offset)
	} else if page.Offset > 0 {
		query += ` OFFSET $3`
		args = append(args, page.Offset)
	}

	reqs := []models.FriendRequest{}
	err := r.db.SelectContext(ctx, &reqs, query, args...)
	return reqs, err
}

func translateWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrFriendRequestExists
		case pqCheckViolation:
			return ErrInvalidPair
		}
	}
	return fmt.Errorf("insert friend request: %w", err)
}

// expectOneRow reports ErrFriendRequestNotPending when a guarded write
// matched nothing: the row was accepted or deleted in between.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFriendRequestNotPending
	}
	return nil
}
