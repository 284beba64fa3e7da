package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bloodlink-backend/api/middleware"
	"github.com/angelmondragon/bloodlink-backend/internal/donations"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/internal/requests"
	pkgAuth "github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func requesterActor() pkgAuth.Actor {
	return pkgAuth.Actor{AccountID: uuid.New(), Role: enums.RoleRequester}
}

func adminActor() pkgAuth.Actor {
	bankID := uuid.New()
	return pkgAuth.Actor{AccountID: uuid.New(), Role: enums.RoleBloodBankAdmin, BankID: &bankID}
}

// newRequest builds a request carrying actor (when non-nil), a JSON body and
// chi URL params given as key/value pairs.
func newRequest(t *testing.T, method, target string, actor *pkgAuth.Actor, body any, params ...string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor, "access-1"))
	}
	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			routeCtx.URLParams.Add(params[i], params[i+1])
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	}
	return req
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

type fakeRequestsService struct {
	createFn     func(ctx context.Context, input requests.CreateInput) (*requests.RequestDTO, error)
	transitionFn func(ctx context.Context, input requests.TransitionInput) (*requests.RequestDTO, error)
	getFn        func(ctx context.Context, id uuid.UUID) (*requests.RequestDTO, error)
	queryFn      func(ctx context.Context, filter requests.QueryFilter) ([]requests.RequestDTO, error)
}

func (f *fakeRequestsService) Create(ctx context.Context, input requests.CreateInput) (*requests.RequestDTO, error) {
	return f.createFn(ctx, input)
}

func (f *fakeRequestsService) Transition(ctx context.Context, input requests.TransitionInput) (*requests.RequestDTO, error) {
	return f.transitionFn(ctx, input)
}

func (f *fakeRequestsService) Get(ctx context.Context, id uuid.UUID) (*requests.RequestDTO, error) {
	return f.getFn(ctx, id)
}

func (f *fakeRequestsService) Query(ctx context.Context, filter requests.QueryFilter) ([]requests.RequestDTO, error) {
	return f.queryFn(ctx, filter)
}

type fakeDonationsService struct {
	recordFn func(ctx context.Context, input donations.RecordInput) (*donations.DonationDTO, error)
	listFn   func(ctx context.Context, donorID uuid.UUID, limit int) ([]donations.DonationDTO, error)
}

func (f *fakeDonationsService) Record(ctx context.Context, input donations.RecordInput) (*donations.DonationDTO, error) {
	return f.recordFn(ctx, input)
}

func (f *fakeDonationsService) ListForDonor(ctx context.Context, donorID uuid.UUID, limit int) ([]donations.DonationDTO, error) {
	return f.listFn(ctx, donorID, limit)
}

type fakeNotificationsService struct {
	listFn        func(ctx context.Context, params notifications.ListParams) (*pagination.Page[notifications.View], error)
	markReadFn    func(ctx context.Context, recipientID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

func (f *fakeNotificationsService) List(ctx context.Context, params notifications.ListParams) (*pagination.Page[notifications.View], error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return &pagination.Page[notifications.View]{Items: []notifications.View{}}, nil
}

func (f *fakeNotificationsService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, recipientID, notificationID)
	}
	return nil
}

func (f *fakeNotificationsService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, recipientID)
	}
	return 0, nil
}

func sampleRequest(requesterID uuid.UUID) *requests.RequestDTO {
	now := time.Now().UTC()
	return &requests.RequestDTO{
		ID:          uuid.New(),
		RequesterID: requesterID,
		PatientName: "Ama Mensah",
		BloodType:   enums.BloodTypeONeg,
		Units:       2,
		Hospital:    "Korle Bu",
		Urgency:     enums.UrgencyHigh,
		Status:      enums.RequestStatusPending,
		NeededBy:    now.Add(24 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
