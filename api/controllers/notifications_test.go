package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
)

func TestListNotificationsUsesCaller(t *testing.T) {
	actor := requesterActor()
	var got notifications.ListParams
	svc := &fakeNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*pagination.Page[notifications.View], error) {
			got = params
			return &pagination.Page[notifications.View]{Items: []notifications.View{}}, nil
		},
	}

	req := newRequest(t, http.MethodGet, "/api/v1/notifications?recipient="+actor.AccountID.String()+"&unread_only=true&limit=5", &actor, nil)
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, actor.AccountID, got.RecipientID)
	assert.True(t, got.UnreadOnly)
	assert.Equal(t, 5, got.Limit)
}

func TestListNotificationsRejectsOtherRecipient(t *testing.T) {
	actor := requesterActor()
	req := newRequest(t, http.MethodGet, "/api/v1/notifications?recipient="+uuid.NewString(), &actor, nil)
	resp := httptest.NewRecorder()
	ListNotifications(&fakeNotificationsService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	actor := requesterActor()
	notificationID := uuid.New()
	called := false
	svc := &fakeNotificationsService{
		markReadFn: func(ctx context.Context, rid, nid uuid.UUID) error {
			called = true
			assert.Equal(t, actor.AccountID, rid)
			assert.Equal(t, notificationID, nid)
			return nil
		},
	}

	req := newRequest(t, http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", &actor, nil,
		"notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, called)
	assert.Equal(t, map[string]bool{"read": true}, decodeData[map[string]bool](t, resp))
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	actor := requesterActor()
	req := newRequest(t, http.MethodPost, "/api/v1/notifications/nope/read", &actor, nil, "notificationId", "nope")
	resp := httptest.NewRecorder()
	MarkNotificationRead(&fakeNotificationsService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	actor := requesterActor()
	svc := &fakeNotificationsService{
		markAllReadFn: func(ctx context.Context, rid uuid.UUID) (int64, error) {
			assert.Equal(t, actor.AccountID, rid)
			return 3, nil
		},
	}

	req := newRequest(t, http.MethodPost, "/api/v1/notifications/read-all", &actor, nil)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(3), decodeData[map[string]int64](t, resp)["updated"])
}
