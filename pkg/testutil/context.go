package testutil

import (
	"net/http"
	"time"

	"fintrust/pkg/requestcontext"
)

// WithSubject stands in for the auth middleware. An empty id leaves the
// request anonymous.
func WithSubject(req *http.Request, subjectID string) *http.Request {
	if subjectID == "" {
		return req
	}
	return req.WithContext(requestcontext.WithSubjectID(req.Context(), subjectID))
}

// WithClock pins the request-scoped time.
func WithClock(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
