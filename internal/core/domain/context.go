package domain

import "context"

type requestIDKey struct{}

// ContextWithRequestID attaches the inbound request id so records written
// deeper in the pipeline can be correlated with access logs.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}
