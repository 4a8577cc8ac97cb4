package generation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
)

var (
	ErrRateLimited       = errors.New("generation rate limited")
	ErrServerUnavailable = errors.New("generation backend unavailable")
	ErrMalformedOutput   = errors.New("generation output does not match the justification schema")
	ErrEmptyResponse     = errors.New("generation returned no content")
	ErrBlocked           = errors.New("generation blocked by safety filters")
	ErrNotConfigured     = errors.New("generation backend not configured")
)

// SchemaError lists the fields of a generation output that failed validation
type SchemaError struct {
	Fields []string
	Err    error
}

func (e *SchemaError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedOutput, strings.Join(e.Fields, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrMalformedOutput, e.Err)
	}
	return ErrMalformedOutput.Error()
}

// Unwrap exposes both the sentinel and the underlying decode error
func (e *SchemaError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedOutput}
	}
	return []error{ErrMalformedOutput, e.Err}
}

// statusCode extracts an HTTP-equivalent status from Google API errors; 0 if none
func statusCode(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var aErr *apierror.APIError
	if errors.As(err, &aErr) {
		if code := aErr.HTTPCode(); code > 0 {
			return code
		}
		if st := aErr.GRPCStatus(); st != nil {
			switch st.Code() {
			case codes.ResourceExhausted:
				return http.StatusTooManyRequests
			case codes.Unavailable, codes.Internal, codes.DeadlineExceeded, codes.Unknown:
				return http.StatusServiceUnavailable
			}
		}
	}
	return 0
}

// Classify wraps err with ErrRateLimited or ErrServerUnavailable when the
// backend status says so. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerUnavailable) {
		return err
	}
	code := statusCode(err)
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", ErrServerUnavailable, err)
	}
	return err
}

// IsTransient reports whether a generation error is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerUnavailable)
}
