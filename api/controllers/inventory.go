package controllers

import (
	"net/http"

	"github.com/angelmondragon/bloodlink-backend/api/responses"
	"github.com/angelmondragon/bloodlink-backend/api/validators"
	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
)

type adjustBody struct {
	Delta  int                    `json:"delta" validate:"required"`
	Reason enums.AdjustmentReason `json:"reason" validate:"required"`
}

// AdjustInventory applies a manual correction to one blood type of a bank.
func AdjustInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bankID, err := validators.ParseURLUUID(r, "bankId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bloodType, err := bloodTypeParam(r, "bloodType")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			BankID:    bankID,
			BloodType: bloodType,
			Delta:     body.Delta,
			Reason:    body.Reason,
			Actor:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// InventoryLevels returns every blood type of a bank with its stock level.
func InventoryLevels(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		bankID, err := validators.ParseURLUUID(r, "bankId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		levels, err := svc.Levels(r.Context(), bankID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, levels)
	}
}

func InventoryHistory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		bankID, err := validators.ParseURLUUID(r, "bankId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bloodType, err := bloodTypeParam(r, "bloodType")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), bankID, bloodType, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
