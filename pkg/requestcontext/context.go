// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the authenticated actor and request metadata; services read them
// without importing net/http.
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithActor(ctx, requestcontext.Member{Company: "acme", EventID: "e1"})
package requestcontext

import (
	"context"
	"time"
)

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Role distinguishes administrators from event staff.
type Role int

const (
	RoleStaff Role = iota
	RoleAdmin
)

// Member is the authenticated principal issuing a request.
type Member struct {
	Company    string
	MemberID   string
	MemberName string
	// EventID is set for event-scoped staff tokens; administrators usually carry none.
	EventID string
	Role    Role
}

// IsAdmin reports whether the member acts as a company administrator.
func (m Member) IsAdmin() bool { return m.Role == RoleAdmin }

// Actor retrieves the authenticated member. The zero value is returned when unset.
func Actor(ctx context.Context) Member {
	if m, ok := ctx.Value(actorKey{}).(Member); ok {
		return m
	}
	return Member{}
}

// WithActor injects the authenticated member into the context.
func WithActor(ctx context.Context, m Member) context.Context {
	return context.WithValue(ctx, actorKey{}, m)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
