// Package requestcontext carries request-scoped values between middleware and
// services so that services never import net/http.
//
//	subjectID := requestcontext.SubjectID(ctx)
//	now := requestcontext.Now(ctx)
//
// Workers and tests set the values they need directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	subjectIDKey key = iota
	emailKey
	clientIPKey
	userAgentKey
	requestIDKey
	requestTimeKey
	consentIDKey
)

func value[T any](ctx context.Context, k key) T {
	v, _ := ctx.Value(k).(T)
	return v
}

// SubjectID is the authenticated subject, or "" for anonymous requests.
func SubjectID(ctx context.Context) string { return value[string](ctx, subjectIDKey) }

func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectIDKey, subjectID)
}

// Email is set only when the token carried one.
func Email(ctx context.Context) string { return value[string](ctx, emailKey) }

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

func ClientIP(ctx context.Context) string  { return value[string](ctx, clientIPKey) }
func UserAgent(ctx context.Context) string { return value[string](ctx, userAgentKey) }

// WithClientMetadata stores the caller's address and user agent together, as
// the metadata middleware resolves them in one pass.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func RequestID(ctx context.Context) string { return value[string](ctx, requestIDKey) }

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ConsentID is the consent record the gate matched for this request.
func ConsentID(ctx context.Context) string { return value[string](ctx, consentIDKey) }

func WithConsentID(ctx context.Context, consentID string) context.Context {
	return context.WithValue(ctx, consentIDKey, consentID)
}

// Now returns the time pinned by the requesttime middleware, falling back to
// the wall clock for workers and the CLI.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
