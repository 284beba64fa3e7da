package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bloodlink-backend/internal/profiles"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
)

type fakeProfilesService struct {
	profiles.Service
	getDonorFn func(ctx context.Context, donorID uuid.UUID) (*profiles.DonorMatch, error)
}

func (f *fakeProfilesService) GetDonor(ctx context.Context, donorID uuid.UUID) (*profiles.DonorMatch, error) {
	return f.getDonorFn(ctx, donorID)
}

func TestGetDonorReturnsEligibility(t *testing.T) {
	actor := requesterActor()
	donorID := uuid.New()
	svc := &fakeProfilesService{
		getDonorFn: func(ctx context.Context, id uuid.UUID) (*profiles.DonorMatch, error) {
			return &profiles.DonorMatch{Profile: profiles.ProfileDTO{AccountID: id, FullName: "Dee"}, Eligible: true}, nil
		},
	}

	req := newRequest(t, http.MethodGet, "/api/v1/donors/"+donorID.String(), &actor, nil, "donorId", donorID.String())
	resp := httptest.NewRecorder()
	GetDonor(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decodeData[profiles.DonorMatch](t, resp)
	assert.Equal(t, donorID, got.Profile.AccountID)
	assert.True(t, got.Eligible)
}

func TestGetDonorMapsErrors(t *testing.T) {
	actor := requesterActor()
	svc := &fakeProfilesService{
		getDonorFn: func(ctx context.Context, id uuid.UUID) (*profiles.DonorMatch, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donor not found")
		},
	}

	req := newRequest(t, http.MethodGet, "/api/v1/donors/x", &actor, nil, "donorId", uuid.NewString())
	resp := httptest.NewRecorder()
	GetDonor(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	req = newRequest(t, http.MethodGet, "/api/v1/donors/not-a-uuid", &actor, nil, "donorId", "not-a-uuid")
	resp = httptest.NewRecorder()
	GetDonor(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
