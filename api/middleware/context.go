package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/bloodlink-backend/pkg/auth"
)

type contextKey string

const (
	ctxActor     contextKey = "actor"
	ctxAccessID  contextKey = "access_id"
	ctxRequestID contextKey = "request_id"
)

// ActorFromContext returns the authenticated caller seeded by Auth.
func ActorFromContext(ctx context.Context) (pkgAuth.Actor, bool) {
	if ctx == nil {
		return pkgAuth.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(pkgAuth.Actor)
	return actor, ok
}

func AccountIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.AccountID.String()
	}
	return ""
}

func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the caller and its session id into the context.
func WithActor(ctx context.Context, actor pkgAuth.Actor, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxActor, actor)
	return context.WithValue(ctx, ctxAccessID, accessID)
}
