package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"friend-service/internal/mocks"
	"friend-service/internal/models"
	"friend-service/internal/services"
	"friend-service/internal/telemetry"
)

func setupFriendRouter(handler *FriendHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/friend-request/send", handler.SendRequest)
	r.POST("/friend-request/manage", handler.ManageRequest)
	r.GET("/friends", handler.ListFriends)
	r.GET("/friend-requests/pending", handler.ListPending)
	return r
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendRequestCreated(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	publisher := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(publisher, "audit.friend", "friend-service", "test")
	router := setupFriendRouter(NewFriendHandler(manager, new(mocks.DirectoryMock), audit))

	created := models.FriendRequest{ID: 9, FromUserID: 1, ToUserID: 2, Status: models.FriendRequestPending, CreatedAt: time.Now().UTC()}
	manager.On("SendRequest", mock.Anything, 1, 2).Return(created, nil).Once()
	publisher.On("Publish", mock.Anything, "audit.friend", mock.Anything).Return(nil).Once()

	rec := perform(router, http.MethodPost, "/friend-request/send", `{"to_user_id":2}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.FriendRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 9, resp.ID)
	assert.Equal(t, 2, resp.ToUserID)
	manager.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSendRequestMissingRecipient(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	router := setupFriendRouter(NewFriendHandler(manager, nil, nil))

	rec := perform(router, http.MethodPost, "/friend-request/send", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	manager.AssertNotCalled(t, "SendRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendRequestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"recipient not found", services.ErrRecipientNotFound, http.StatusNotFound},
		{"self request", services.ErrInvalidPair, http.StatusBadRequest},
		{"rate limited", services.ErrRateLimited, http.StatusTooManyRequests},
		{"duplicate", services.ErrAlreadyRequested, http.StatusBadRequest},
		{"store failure", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			manager := new(mocks.FriendManagerMock)
			router := setupFriendRouter(NewFriendHandler(manager, nil, nil))
			manager.On("SendRequest", mock.Anything, 1, 3).Return(nil, tc.err).Once()

			rec := perform(router, http.MethodPost, "/friend-request/send", `{"to_user_id":3}`)

			require.Equal(t, tc.status, rec.Code)
			manager.AssertExpectations(t)
		})
	}
}

func TestManageRequestAcceptAndReject(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	router := setupFriendRouter(NewFriendHandler(manager, nil, nil))

	manager.On("RespondToRequest", mock.Anything, 1, 4, services.ActionAccept).Return(services.OutcomeAccepted, nil).Once()
	manager.On("RespondToRequest", mock.Anything, 1, 5, services.ActionReject).Return(services.OutcomeRejected, nil).Once()

	rec := perform(router, http.MethodPost, "/friend-request/manage", `{"request_id":4,"action":"accept"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Friend request accepted"}`, rec.Body.String())

	rec = perform(router, http.MethodPost, "/friend-request/manage", `{"request_id":5,"action":"reject"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Friend request rejected"}`, rec.Body.String())

	manager.AssertExpectations(t)
}

func TestManageRequestInvalidAction(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	router := setupFriendRouter(NewFriendHandler(manager, nil, nil))

	rec := perform(router, http.MethodPost, "/friend-request/manage", `{"request_id":4,"action":"block"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	manager.AssertNotCalled(t, "RespondToRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestManageRequestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", services.ErrRequestNotFound, http.StatusNotFound},
		{"already handled", services.ErrInvalidState, http.StatusConflict},
		{"store failure", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			manager := new(mocks.FriendManagerMock)
			router := setupFriendRouter(NewFriendHandler(manager, nil, nil))
			manager.On("RespondToRequest", mock.Anything, 1, 4, services.ActionAccept).Return(nil, tc.err).Once()

			rec := perform(router, http.MethodPost, "/friend-request/manage", `{"request_id":4,"action":"accept"}`)

			require.Equal(t, tc.status, rec.Code)
			manager.AssertExpectations(t)
		})
	}
}

func TestListFriendsEnrichesProfiles(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	dir := new(mocks.DirectoryMock)
	router := setupFriendRouter(NewFriendHandler(manager, dir, nil))

	manager.On("ListFriends", mock.Anything, 1).Return([]int{2, 3}, nil).Once()
	dir.On("BulkUsers", mock.Anything, []int{2, 3}).Return([]models.User{{ID: 2, Username: "bob", Email: "bob@example.com"}}, nil).Once()

	rec := perform(router, http.MethodGet, "/friends", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Friends []models.User `json:"friends"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Friends, 2)
	assert.Equal(t, "bob", resp.Friends[0].Username)
	assert.Equal(t, 3, resp.Friends[1].ID)
	manager.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestListFriendsDirectoryError(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	dir := new(mocks.DirectoryMock)
	router := setupFriendRouter(NewFriendHandler(manager, dir, nil))

	manager.On("ListFriends", mock.Anything, 1).Return([]int{2}, nil).Once()
	dir.On("BulkUsers", mock.Anything, []int{2}).Return(nil, assert.AnError).Once()

	rec := perform(router, http.MethodGet, "/friends", "")

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListFriendsStoreError(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	router := setupFriendRouter(NewFriendHandler(manager, new(mocks.DirectoryMock), nil))

	manager.On("ListFriends", mock.Anything, 1).Return(nil, assert.AnError).Once()

	rec := perform(router, http.MethodGet, "/friends", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListPendingPaging(t *testing.T) {
	manager := new(mocks.FriendManagerMock)
	router := setupFriendRouter(NewFriendHandler(manager, nil, nil))

	manager.On("ListPendingReceived", mock.Anything, 1, models.Page{}).
		Return([]models.FriendRequest{{ID: 1, FromUserID: 5, ToUserID: 1}}, nil).Once()
	manager.On("ListPendingReceived", mock.Anything, 1, models.Page{Limit: 10, Offset: 20}).
		Return([]models.FriendRequest{}, nil).Once()

	rec := perform(router, http.MethodGet, "/friend-requests/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Requests []models.FriendRequest `json:"requests"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Requests, 1)
	assert.Equal(t, 5, resp.Requests[0].FromUserID)

	rec = perform(router, http.MethodGet, "/friend-requests/pending?limit=10&offset=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	manager.AssertExpectations(t)
}

func TestListPendingInvalidPaging(t *testing.T) {
	router := setupFriendRouter(NewFriendHandler(new(mocks.FriendManagerMock), nil, nil))

	rec := perform(router, http.MethodGet, "/friend-requests/pending?limit=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(router, http.MethodGet, "/friend-requests/pending?offset=-1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDebugRouteEmitsAudit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	publisher := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(publisher, "audit.friend", "friend-service", "test")
	r := gin.New()
	RegisterDebugRoutes(r, audit, true)

	publisher.On("Publish", mock.Anything, "audit.friend", mock.Anything).Return(nil).Once()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	publisher.AssertExpectations(t)
}

func TestDebugRouteDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, nil, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
