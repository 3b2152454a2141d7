package testutil

import (
	"net/http"

	"cashless/pkg/requestcontext"
)

// WithMember puts the member on the request context, as the auth middleware
// does for an authenticated request.
func WithMember(req *http.Request, m requestcontext.Member) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), m))
}
