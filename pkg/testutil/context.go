package testutil

import (
	"context"

	"certnexus/pkg/requestcontext"
)

// OfficerContext returns a context carrying an authenticated officer identity,
// matching what the officer auth middleware stamps on real requests.
func OfficerContext(officerID string) context.Context {
	return requestcontext.WithOfficerID(context.Background(), officerID)
}

// UserContext returns a context for an authenticated participant.
func UserContext(userID string) context.Context {
	return requestcontext.WithUserID(context.Background(), userID)
}

// WithRequestID attaches a request ID for audit assertions.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return requestcontext.WithRequestID(ctx, requestID)
}
