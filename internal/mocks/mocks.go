package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"friend-service/internal/directory"
	"friend-service/internal/models"
	"friend-service/internal/repositories"
	"friend-service/internal/services"
)

type FriendManagerMock struct {
	mock.Mock
}

func (m *FriendManagerMock) SendRequest(ctx context.Context, sender, recipientID int) (models.FriendRequest, error) {
	args := m.Called(ctx, sender, recipientID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendManagerMock) RespondToRequest(ctx context.Context, responder, requestID int, action services.Action) (services.Outcome, error) {
	args := m.Called(ctx, responder, requestID, action)
	var outcome services.Outcome
	if val := args.Get(0); val != nil {
		outcome = val.(services.Outcome)
	}
	return outcome, args.Error(1)
}

func (m *FriendManagerMock) ListFriends(ctx context.Context, user int) ([]int, error) {
	args := m.Called(ctx, user)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *FriendManagerMock) ListPendingReceived(ctx context.Context, user int, page models.Page) ([]models.FriendRequest, error) {
	args := m.Called(ctx, user, page)
	var reqs []models.FriendRequest
	if val := args.Get(0); val != nil {
		reqs = val.([]models.FriendRequest)
	}
	return reqs, args.Error(1)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) Resolve(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *DirectoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type FriendRequestRepositoryMock struct {
	mock.Mock
}

func (m *FriendRequestRepositoryMock) Create(ctx context.Context, fromUserID, toUserID int, createdAt time.Time) (models.FriendRequest, error) {
	args := m.Called(ctx, fromUserID, toUserID, createdAt)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendRequestRepositoryMock) Exists(ctx context.Context, fromUserID, toUserID int) (bool, error) {
	args := m.Called(ctx, fromUserID, toUserID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRequestRepositoryMock) GetForRecipient(ctx context.Context, requestID, toUserID int) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID, toUserID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendRequestRepositoryMock) Accept(ctx context.Context, req models.FriendRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *FriendRequestRepositoryMock) Delete(ctx context.Context, req models.FriendRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *FriendRequestRepositoryMock) CountRecentFrom(ctx context.Context, fromUserID int, since time.Time) (int, error) {
	args := m.Called(ctx, fromUserID, since)
	return args.Int(0), args.Error(1)
}

func (m *FriendRequestRepositoryMock) FriendsOf(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *FriendRequestRepositoryMock) PendingReceivedBy(ctx context.Context, userID int, page models.Page) ([]models.FriendRequest, error) {
	args := m.Called(ctx, userID, page)
	var reqs []models.FriendRequest
	if val := args.Get(0); val != nil {
		reqs = val.([]models.FriendRequest)
	}
	return reqs, args.Error(1)
}

var _ directory.Directory = (*DirectoryMock)(nil)
var _ repositories.FriendRequestRepository = (*FriendRequestRepositoryMock)(nil)
