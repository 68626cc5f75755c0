package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"friend-service/internal/directory"
	"friend-service/internal/models"
	"friend-service/internal/observability"
	"friend-service/internal/repositories"
)

// Action is a recipient's response to a pending request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// ParseAction validates a raw action string.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionAccept, ActionReject:
		return Action(raw), nil
	default:
		return "", ErrInvalidAction
	}
}

// Outcome marks a successful response.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Limiter decides whether a sender may create another request.
type Limiter interface {
	Allow(ctx context.Context, userID int, now time.Time) (bool, error)
}

// FriendService orchestrates friend request creation, responses and listings.
// Callers pass the authenticated user id explicitly on every call.
type FriendService struct {
	requests  repositories.FriendRequestRepository
	directory directory.Directory
	limiter   Limiter
	now       func() time.Time
	tracer    trace.Tracer
}

// Option customises a FriendService.
type Option func(*FriendService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *FriendService) {
		s.now = now
	}
}

// NewFriendService creates a new FriendService.
func NewFriendService(requests repositories.FriendRequestRepository, dir directory.Directory, limiter Limiter, opts ...Option) *FriendService {
	s := &FriendService{
		requests:  requests,
		directory: dir,
		limiter:   limiter,
		now:       time.Now,
		tracer:    otel.Tracer("friend-service/services"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendRequest creates a pending request from sender to recipientID.
//
// Checks run in order: recipient exists, not self, rate limit, duplicate.
// The duplicate check is advisory; the store rejects a racing duplicate at
// write time and that surfaces as ErrAlreadyRequested too.
func (s *FriendService) SendRequest(ctx context.Context, sender, recipientID int) (req models.FriendRequest, err error) {
	ctx, span := s.tracer.Start(ctx, "FriendService.SendRequest", trace.WithAttributes(
		attribute.Int("friend.sender_id", sender),
		attribute.Int("friend.recipient_id", recipientID),
	))
	defer func() {
		observability.IncFriendRequestSent(sendOutcome(err))
		endSpan(span, err)
	}()

	recipient, err := s.directory.Resolve(ctx, recipientID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return models.FriendRequest{}, ErrRecipientNotFound
		}
		return models.FriendRequest{}, fmt.Errorf("resolve recipient: %w", err)
	}

	if recipient.ID == sender {
		return models.FriendRequest{}, ErrInvalidPair
	}

	now := s.now()
	allowed, err := s.limiter.Allow(ctx, sender, now)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if !allowed {
		return models.FriendRequest{}, ErrRateLimited
	}

	exists, err := s.requests.Exists(ctx, sender, recipient.ID)
	if err != nil {
		return models.FriendRequest{}, fmt.Errorf("check existing request: %w", err)
	}
	if exists {
		return models.FriendRequest{}, ErrAlreadyRequested
	}

	req, err = s.requests.Create(ctx, sender, recipient.ID, now)
	switch {
	case errors.Is(err, repositories.ErrFriendRequestExists):
		return models.FriendRequest{}, ErrAlreadyRequested
	case errors.Is(err, repositories.ErrInvalidPair):
		return models.FriendRequest{}, ErrInvalidPair
	case err != nil:
		return models.FriendRequest{}, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// RespondToRequest accepts or rejects a pending request addressed to responder.
// A request that does not exist and one addressed to someone else both yield
// ErrRequestNotFound.
func (s *FriendService) RespondToRequest(ctx context.Context, responder, requestID int, action Action) (outcome Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, "FriendService.RespondToRequest", trace.WithAttributes(
		attribute.Int("friend.responder_id", responder),
		attribute.Int("friend.request_id", requestID),
		attribute.String("friend.action", string(action)),
	))
	defer func() {
		label := string(action)
		if errors.Is(err, ErrInvalidAction) {
			label = "invalid"
		}
		observability.IncFriendRequestResponse(label, respondOutcome(err))
		endSpan(span, err)
	}()

	if _, err := ParseAction(string(action)); err != nil {
		return "", err
	}

	req, err := s.requests.GetForRecipient(ctx, requestID, responder)
	if err != nil {
		if errors.Is(err, repositories.ErrFriendRequestNotFound) {
			return "", ErrRequestNotFound
		}
		return "", fmt.Errorf("load request: %w", err)
	}
	if !req.IsPending() {
		return "", ErrInvalidState
	}

	if action == ActionAccept {
		err = s.requests.Accept(ctx, req)
		outcome = OutcomeAccepted
	} else {
		err = s.requests.Delete(ctx, req)
		outcome = OutcomeRejected
	}
	if errors.Is(err, repositories.ErrFriendRequestNotPending) {
		return "", ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("%s request: %w", action, err)
	}
	return outcome, nil
}

// ListFriends returns recipients of accepted requests sent by user. The view
// is directional: accepting a request does not make the sender appear in the
// recipient's list.
func (s *FriendService) ListFriends(ctx context.Context, user int) ([]int, error) {
	ctx, span := s.tracer.Start(ctx, "FriendService.ListFriends", trace.WithAttributes(attribute.Int("friend.user_id", user)))
	ids, err := s.requests.FriendsOf(ctx, user)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return ids, nil
}

// ListPendingReceived returns pending requests addressed to user, oldest first.
func (s *FriendService) ListPendingReceived(ctx context.Context, user int, page models.Page) ([]models.FriendRequest, error) {
	ctx, span := s.tracer.Start(ctx, "FriendService.ListPendingReceived", trace.WithAttributes(attribute.Int("friend.user_id", user)))
	reqs, err := s.requests.PendingReceivedBy(ctx, user, page)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return reqs, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func sendOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrRecipientNotFound):
		return "recipient_not_found"
	case errors.Is(err, ErrInvalidPair):
		return "invalid_pair"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAlreadyRequested):
		return "already_requested"
	default:
		return "error"
	}
}

func respondOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRequestNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	default:
		return "error"
	}
}
