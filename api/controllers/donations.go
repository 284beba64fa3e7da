package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/api/responses"
	"github.com/angelmondragon/bloodlink-backend/api/validators"
	"github.com/angelmondragon/bloodlink-backend/internal/donations"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
)

type recordDonationBody struct {
	DonorID uuid.UUID  `json:"donor_id" validate:"required"`
	BankID  *uuid.UUID `json:"bank_id"`
	Units   int        `json:"units" validate:"required,gt=0"`
}

// RecordDonation books a donation at the admin's bank. bank_id defaults to
// the bank on the caller's token.
func RecordDonation(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordDonationBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bankID := body.BankID
		if bankID == nil {
			bankID = actor.BankID
		}
		if bankID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not linked to a bank"))
			return
		}

		donation, err := svc.Record(r.Context(), donations.RecordInput{
			DonorID: body.DonorID,
			BankID:  *bankID,
			Units:   body.Units,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, donation)
	}
}

// ListDonations returns a donor's history. Donors see their own; bank admins
// may look up any donor.
func ListDonations(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		donorID, err := validators.ParseQueryUUID(r, "donor")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if donorID == nil {
			self := actor.AccountID
			donorID = &self
		}
		if *donorID != actor.AccountID && !actor.IsBankAdmin() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another donor's history"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForDonor(r.Context(), *donorID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
