package services

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	types "github.com/yungbote/idmap-backend/internal/domain"
	"github.com/yungbote/idmap-backend/internal/platform/apierr"
)

// traceError marks span failed for server-side errors and returns err.
func traceError(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if apierr.StatusOf(err) >= 500 {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// consistencyError maps a claim/identifier mismatch to a 500 that is never
// confused with a missing identifier.
func consistencyError(err error) error {
	if errors.Is(err, types.ErrClaimMismatch) {
		return apierr.Internal(apierr.CodeInternalConsistency, err)
	}
	return err
}
