package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bloodlink-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
)

func actorFrom(r *http.Request) (pkgAuth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

// bloodTypeParam reads a blood type path segment. "A+" may arrive escaped
// as "A%2B" or spelled "apos".
func bloodTypeParam(r *http.Request, key string) (enums.BloodType, error) {
	raw := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	bloodType, err := enums.ParseBloodType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type").
			WithDetails(map[string]any{"field": key})
	}
	return bloodType, nil
}

func bloodTypeQuery(r *http.Request, key string) (*enums.BloodType, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	bloodType, err := enums.ParseBloodType(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type").
			WithDetails(map[string]any{"field": key})
	}
	return &bloodType, nil
}
