package controllers

import (
	"net/http"

	"github.com/angelmondragon/bloodlink-backend/api/responses"
	"github.com/angelmondragon/bloodlink-backend/api/validators"
	"github.com/angelmondragon/bloodlink-backend/internal/profiles"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
)

type profileRequest struct {
	FullName  string          `json:"full_name" validate:"required"`
	Phone     string          `json:"phone"`
	BloodType enums.BloodType `json:"blood_type" validate:"omitempty,bloodtype"`
	City      string          `json:"city"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Available *bool           `json:"available"`
}

// GetMyProfile returns the caller's directory profile.
func GetMyProfile(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profiles service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetProfile(r.Context(), actor.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// UpdateMyProfile replaces the caller's editable profile fields.
func UpdateMyProfile(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profiles service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body profileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.UpsertProfile(r.Context(), actor.AccountID, profiles.UpsertInput{
			FullName:  body.FullName,
			Phone:     body.Phone,
			BloodType: body.BloodType,
			City:      body.City,
			Latitude:  body.Latitude,
			Longitude: body.Longitude,
			Available: body.Available,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// SearchDonors lists donors by blood type, availability and distance.
func SearchDonors(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profiles service unavailable"))
			return
		}

		filter := profiles.SearchFilter{City: r.URL.Query().Get("city")}
		bloodType, err := bloodTypeQuery(r, "blood_type")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if bloodType != nil {
			filter.BloodType = *bloodType
		}
		if filter.Compatible, err = validators.ParseQueryBool(r, "compatible"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.AvailableOnly, err = validators.ParseQueryBool(r, "available"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.EligibleOnly, err = validators.ParseQueryBool(r, "eligible"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Lat, err = validators.ParseQueryFloat(r, "lat"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Lng, err = validators.ParseQueryFloat(r, "lng"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, err := validators.ParseQueryFloat(r, "radius_km")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if radius != nil {
			filter.RadiusKm = *radius
		}
		if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		matches, err := svc.SearchDonors(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, matches)
	}
}

// GetDonor returns one donor's public profile with eligibility.
func GetDonor(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profiles service unavailable"))
			return
		}
		donorID, err := validators.ParseURLUUID(r, "donorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donor, err := svc.GetDonor(r.Context(), donorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, donor)
	}
}
