package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bloodlink-backend/internal/donations"
	pkgAuth "github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
)

func TestRecordDonationDefaultsToActorBank(t *testing.T) {
	actor := adminActor()
	donorID := uuid.New()
	var got donations.RecordInput
	svc := &fakeDonationsService{
		recordFn: func(ctx context.Context, input donations.RecordInput) (*donations.DonationDTO, error) {
			got = input
			return &donations.DonationDTO{ID: uuid.New(), DonorID: input.DonorID, BankID: input.BankID, Units: input.Units}, nil
		},
	}

	req := newRequest(t, http.MethodPost, "/api/v1/donations", &actor, map[string]any{"donor_id": donorID, "units": 1})
	resp := httptest.NewRecorder()
	RecordDonation(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, *actor.BankID, got.BankID)
	assert.Equal(t, donorID, got.DonorID)
	assert.Equal(t, 1, got.Units)
}

func TestRecordDonationSurfacesDeferral(t *testing.T) {
	actor := adminActor()
	svc := &fakeDonationsService{
		recordFn: func(ctx context.Context, input donations.RecordInput) (*donations.DonationDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor is within the deferral period").
				WithDetails(map[string]any{"code": donations.DeferralCode, "next_eligible_date": "2026-12-01"})
		},
	}

	req := newRequest(t, http.MethodPost, "/api/v1/donations", &actor, map[string]any{"donor_id": uuid.New(), "units": 1})
	resp := httptest.NewRecorder()
	RecordDonation(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, donations.DeferralCode, body.Error.Details["code"])
}

func TestRecordDonationWithoutBankIsForbidden(t *testing.T) {
	actor := pkgAuth.Actor{AccountID: uuid.New(), Role: enums.RoleBloodBankAdmin}
	req := newRequest(t, http.MethodPost, "/api/v1/donations", &actor, map[string]any{"donor_id": uuid.New(), "units": 1})
	resp := httptest.NewRecorder()
	RecordDonation(&fakeDonationsService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestListDonationsDefaultsToSelf(t *testing.T) {
	actor := pkgAuth.Actor{AccountID: uuid.New(), Role: enums.RoleDonor}
	var gotDonor uuid.UUID
	svc := &fakeDonationsService{
		listFn: func(ctx context.Context, donorID uuid.UUID, limit int) ([]donations.DonationDTO, error) {
			gotDonor = donorID
			return []donations.DonationDTO{}, nil
		},
	}

	req := newRequest(t, http.MethodGet, "/api/v1/donations", &actor, nil)
	resp := httptest.NewRecorder()
	ListDonations(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, actor.AccountID, gotDonor)
}

func TestListDonationsOtherDonorNeedsAdmin(t *testing.T) {
	donor := pkgAuth.Actor{AccountID: uuid.New(), Role: enums.RoleDonor}
	other := uuid.New()
	svc := &fakeDonationsService{
		listFn: func(ctx context.Context, donorID uuid.UUID, limit int) ([]donations.DonationDTO, error) {
			return []donations.DonationDTO{}, nil
		},
	}

	req := newRequest(t, http.MethodGet, "/api/v1/donations?donor="+other.String(), &donor, nil)
	resp := httptest.NewRecorder()
	ListDonations(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	admin := adminActor()
	req = newRequest(t, http.MethodGet, "/api/v1/donations?donor="+other.String(), &admin, nil)
	resp = httptest.NewRecorder()
	ListDonations(svc, testLogger())(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
