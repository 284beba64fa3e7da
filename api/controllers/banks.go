package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/bloodlink-backend/api/responses"
	"github.com/angelmondragon/bloodlink-backend/api/validators"
	"github.com/angelmondragon/bloodlink-backend/internal/banks"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
)

type registerBankRequest struct {
	Name          string   `json:"name" validate:"required"`
	LicenseNumber string   `json:"license_number" validate:"required"`
	LicenseExpiry string   `json:"license_expiry" validate:"required"`
	ContactPerson string   `json:"contact_person" validate:"required"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone" validate:"required"`
	Address       string   `json:"address" validate:"required"`
	City          string   `json:"city" validate:"required"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

func parseDate(field, raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").
		WithDetails(map[string]any{"field": field})
}

// RegisterBank creates a bank and links the calling admin to it. The admin
// must refresh its token to carry the new bank id.
func RegisterBank(svc banks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banks service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body registerBankRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		expiry, err := parseDate("license_expiry", body.LicenseExpiry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bank, err := svc.RegisterBank(r.Context(), actor, banks.RegisterInput{
			Name:          body.Name,
			LicenseNumber: body.LicenseNumber,
			LicenseExpiry: expiry,
			ContactPerson: body.ContactPerson,
			Email:         body.Email,
			Phone:         body.Phone,
			Address:       body.Address,
			City:          body.City,
			Latitude:      body.Latitude,
			Longitude:     body.Longitude,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bank)
	}
}

func GetBank(svc banks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banks service unavailable"))
			return
		}
		bankID, err := validators.ParseURLUUID(r, "bankId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bank, err := svc.GetBank(r.Context(), bankID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bank)
	}
}

// ListBanks returns registered banks, optionally narrowed by ?city=.
func ListBanks(svc banks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "banks service unavailable"))
			return
		}

		list, err := svc.ListBanks(r.Context(), r.URL.Query().Get("city"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
