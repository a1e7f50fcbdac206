package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// RetryableHTTPStatuses is the shared upstream retry policy. A 500 is
// retried once like the other transient statuses; the breaker still counts
// it, so a server that keeps failing is cut off.
var RetryableHTTPStatuses = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

const maxErrorBody = 2048

// HTTPStatusError is a non-2xx answer from an upstream HTTP service.
type HTTPStatusError struct {
	Service    string
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	prefix := e.Service
	if e.Operation != "" {
		prefix += " " + e.Operation
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s status: %s", prefix, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", prefix, e.Status, strings.TrimSpace(e.Body))
}

// NewHTTPStatusError captures the status and the head of the response body.
func NewHTTPStatusError(service, operation string, resp *http.Response) *HTTPStatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPStatusError{
		Service:    service,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// HTTPStatusCode returns the upstream status carried by err, or 0.
func HTTPStatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// HTTPClassifier classifies errors from an HTTP upstream. Statuses outside
// retryable mean the upstream answered deliberately (bad key, bad request),
// so they neither retry nor trip the breaker.
func HTTPClassifier(retryable ...int) ErrorClassifier {
	if len(retryable) == 0 {
		retryable = RetryableHTTPStatuses
	}
	set := make(map[int]struct{}, len(retryable))
	for _, code := range retryable {
		set[code] = struct{}{}
	}
	return func(err error) ErrorClassification {
		if err == nil {
			return ErrorClassification{}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ErrorClassification{}
		}
		if IsCircuitOpen(err) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		if code := HTTPStatusCode(err); code != 0 {
			if _, ok := set[code]; ok {
				return ErrorClassification{Retryable: true, RecordFailure: true}
			}
			return ErrorClassification{}
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return ErrorClassification{RecordFailure: true}
	}
}

// WrapTemporary marks err as domain.ErrTemporary when the classifier says
// it was worth retrying or the breaker is open.
func WrapTemporary(classify ErrorClassifier, operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || classify(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
