package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/api/responses"
	"github.com/angelmondragon/bloodlink-backend/api/validators"
	"github.com/angelmondragon/bloodlink-backend/internal/requests"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
)

const maxQueryOffset = 10000

type createRequestBody struct {
	ID            *uuid.UUID      `json:"id"`
	PatientName   string          `json:"patient_name" validate:"required"`
	BloodType     enums.BloodType `json:"blood_type" validate:"required,bloodtype"`
	Units         int             `json:"units" validate:"required,gt=0"`
	Hospital      string          `json:"hospital" validate:"required"`
	Urgency       enums.Urgency   `json:"urgency" validate:"required,urgency"`
	ContactNumber string          `json:"contact_number" validate:"required"`
	Notes         *string         `json:"notes"`
	NeededBy      string          `json:"needed_by" validate:"required"`
}

type transitionBody struct {
	Status enums.RequestStatus `json:"status" validate:"required,requeststatus"`
	Reason string              `json:"reason"`
}

// CreateRequest files a new blood request for the caller.
func CreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		neededBy, err := parseDate("needed_by", body.NeededBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), requests.CreateInput{
			ID:            body.ID,
			PatientName:   body.PatientName,
			BloodType:     body.BloodType,
			Units:         body.Units,
			Hospital:      body.Hospital,
			Urgency:       body.Urgency,
			ContactNumber: body.ContactNumber,
			Notes:         body.Notes,
			NeededBy:      neededBy,
			Actor:         actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func GetRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseURLUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := svc.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role == enums.RoleRequester && req.RequesterID != actor.AccountID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "request not found"))
			return
		}
		responses.WriteSuccess(w, req)
	}
}

// ListRequests queries requests ordered by need date then urgency.
// Requesters only ever see their own requests.
func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := requestFilterFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role == enums.RoleRequester {
			self := actor.AccountID
			filter.RequesterID = &self
		}

		list, err := svc.Query(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func requestFilterFrom(r *http.Request) (requests.QueryFilter, error) {
	var (
		filter requests.QueryFilter
		err    error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, perr := enums.ParseRequestStatus(raw)
		if perr != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "invalid status").
				WithDetails(map[string]any{"field": "status"})
		}
		filter.Status = &status
	}
	if filter.BloodType, err = bloodTypeQuery(r, "blood_type"); err != nil {
		return filter, err
	}
	if filter.NeededFrom, err = validators.ParseQueryTime(r, "needed_from"); err != nil {
		return filter, err
	}
	if filter.NeededTo, err = validators.ParseQueryTime(r, "needed_to"); err != nil {
		return filter, err
	}
	if filter.RequesterID, err = validators.ParseQueryUUID(r, "requester"); err != nil {
		return filter, err
	}
	if filter.BankID, err = validators.ParseQueryUUID(r, "bank"); err != nil {
		return filter, err
	}
	if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return filter, err
	}
	if filter.Offset, err = validators.ParseQueryInt(r, "offset", 0, 0, maxQueryOffset); err != nil {
		return filter, err
	}
	return filter, nil
}

// TransitionRequest moves a request through its lifecycle.
func TransitionRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseURLUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Transition(r.Context(), requests.TransitionInput{
			RequestID: requestID,
			Target:    body.Status,
			Actor:     actor,
			Reason:    body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
