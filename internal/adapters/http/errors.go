package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/contextify/internal/adapters/http/dto"
	"github.com/jsamuelsen/contextify/internal/adapters/http/middleware"
	"github.com/jsamuelsen/contextify/internal/domain"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
)

// MapDomainError maps a domain error to an HTTP status code and error response.
// Unknown errors are mapped to 500 Internal Server Error with a generic message.
func MapDomainError(err error) (int, *dto.ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
			dto.ErrorCodePayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		)

	case errors.Is(err, middleware.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, dto.NewErrorResponse(
			dto.ErrorCodeTimeout,
			"request timeout exceeded",
		)

	case domain.IsUnknownProvider(err), errors.Is(err, domain.ErrUnknownGroup):
		return http.StatusNotFound, dto.NewErrorResponse(
			dto.ErrorCodeNotFound,
			err.Error(),
		)

	case errors.Is(err, domain.ErrNotificationsDisabled):
		return http.StatusConflict, dto.NewErrorResponse(
			dto.ErrorCodeConflict,
			err.Error(),
		)

	case domain.IsNotificationFailed(err):
		return http.StatusBadGateway, dto.NewErrorResponse(
			dto.ErrorCodeNotificationFailed,
			notificationFailedMessage(err),
		)

	case errors.Is(err, dto.ErrValidation), errors.Is(err, dto.ErrBinding):
		return http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			dto.ValidationErrors(err),
		)

	default:
		// Unknown errors get a generic message to avoid leaking internals
		return http.StatusInternalServerError, dto.NewErrorResponse(
			dto.ErrorCodeInternal,
			"an internal error occurred",
		)
	}
}

// notificationFailedMessage names the failed channels without the causes,
// which may carry downstream URLs or credentials.
func notificationFailedMessage(err error) string {
	var channels []string
	collectFailedChannels(err, &channels)

	if len(channels) == 0 {
		return "notification delivery failed"
	}

	return "notification via " + strings.Join(channels, ", ") + " failed"
}

func collectFailedChannels(err error, channels *[]string) {
	if nf, ok := err.(*domain.NotificationFailedError); ok { //nolint:errorlint // walking the tree by hand
		if nf.Channel != "" && !slices.Contains(*channels, nf.Channel) {
			*channels = append(*channels, nf.Channel)
		}
		return
	}

	switch e := err.(type) { //nolint:errorlint // walking the tree by hand
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collectFailedChannels(inner, channels)
		}
	case interface{ Unwrap() error }:
		collectFailedChannels(e.Unwrap(), channels)
	}
}

// RespondWithError writes an error response to the gin.Context.
// It maps domain errors to HTTP responses and includes the trace ID if available.
func RespondWithError(c *gin.Context, err error) {
	status, errResp := MapDomainError(err)
	errResp.TraceID = traceID(c)

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed",
			"error", err.Error(),
			"status", status,
			"otel_trace_id", errResp.TraceID,
		)
	}

	c.JSON(status, errResp)
}

// RespondWithErrorCode writes an error response with a specific error code.
// Use this for adapter-level errors that don't originate from domain errors.
func RespondWithErrorCode(c *gin.Context, code, message string) {
	errResp := dto.NewErrorResponse(code, message).WithTraceID(traceID(c))

	c.JSON(dto.HTTPStatusFromCode(code), errResp)
}

// AbortWithError aborts the request chain and writes an error response.
func AbortWithError(c *gin.Context, err error) {
	status, errResp := MapDomainError(err)
	errResp.TraceID = traceID(c)

	c.AbortWithStatusJSON(status, errResp)
}

func traceID(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}

// Errors returns middleware that renders the last error a handler attached
// with c.Error, unless the handler already wrote a response.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		RespondWithError(c, c.Errors.Last().Err)
	}
}
