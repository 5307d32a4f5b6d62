package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/surveylogic/internal/types"
)

// Auth errors are mapped in the auth package interceptor.
// Validation errors map to INVALID_ARGUMENT.
// Missing surveys and responses map to NOT_FOUND.
// State conflicts (inactive survey, closed response) map to FAILED_PRECONDITION.
// Database errors map to UNAVAILABLE.
// Context timeouts map to DEADLINE_EXCEEDED.

// errInvalidRequest marks a request document that failed decoding or validation.
var errInvalidRequest = errors.New("invalid request")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

// toStatus converts a service error to a gRPC status error.
func toStatus(log zerolog.Logger, method string, err error) error {
	code := codeFor(err)
	switch code {
	case codes.Internal, codes.Unavailable:
		log.Error().Err(err).Str("method", method).Str("code", code.String()).Msg("request failed")
	default:
		log.Debug().Err(err).Str("method", method).Str("code", code.String()).Msg("request rejected")
	}
	return status.Error(code, err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, types.ErrUnknownQuestion),
		errors.Is(err, types.ErrTooManyRules),
		errors.Is(err, types.ErrTooManyAnswers):
		return codes.InvalidArgument
	case errors.Is(err, types.ErrSurveyNotFound),
		errors.Is(err, types.ErrResponseNotFound):
		return codes.NotFound
	case errors.Is(err, types.ErrSurveyNotActive),
		errors.Is(err, types.ErrResponseClosed),
		errors.Is(err, types.ErrEmptySurvey):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case strings.Contains(err.Error(), "database error"):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
