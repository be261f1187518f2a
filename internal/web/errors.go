package web

// errors.go maps errors to stable codes and writes JSON error responses.
//
// Every error response has the same shape:
//
//	{"error": "...", "message": "...", "action": "...", "code": "VAL004"}
//
// The technical error is logged with the request id; clients only see the
// mapped message. Client errors (unknown rule, missing columns, bad request
// fields) carry their own descriptive text. Anything unrecognized collapses
// to ERR000 with an opaque message.
//
// # Error Codes
//
//	RULE001  unknown rule set                      400
//	VAL003   invalid request field                 400
//	VAL004   missing required columns              400
//	VAL007   malformed JSON body or query          400
//	FILE001  request body too large                413
//	FILE002  invalid workbook                      400
//	FILE003  unsupported file type                 400
//	FILE004  no file provided                      400
//	NF001    record not found                      404
//	DB001    duplicate key                         409
//	DB003    foreign key violation                 409
//	DB004    connection refused                    503
//	DB005    connection reset                      503
//	DB006    database timeout                      504
//	DB007    deadlock                              503
//	DB008    rejected by a stored procedure        422
//	UPL002   too many concurrent uploads           503
//	UPL003   server shutting down                  503
//	UPL004   request cancelled                     408
//	UPL005   request timed out                     504
//	ERR000   anything else                         500
//
// Typed errors are checked first. The pattern table only catches driver
// errors that arrive as plain text.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/taxref/internal/logging"
	"github.com/JonMunkholm/taxref/internal/sheet"
	"github.com/JonMunkholm/taxref/internal/tax"
	"github.com/JonMunkholm/taxref/internal/upload"
	"github.com/JonMunkholm/taxref/internal/validation"
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgRaiseException      = "P0001"
	pgDeadlockDetected    = "40P01"
)

// errMalformedRequest marks request bodies and query strings that could not
// be decoded.
var errMalformedRequest = errors.New("malformed request")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Status  int    // HTTP status
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively; the first match wins.
var errorPatterns = []errorPattern{
	{"request body too large", UserMessage{"Request exceeds maximum size limit", "Send a smaller file or fewer items", "FILE001", http.StatusRequestEntityTooLarge}},
	{"duplicate key", UserMessage{"A record with this ID already exists", "Check for duplicate tax codes", "DB001", http.StatusConflict}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Ensure the referenced tax rule exists", "DB003", http.StatusConflict}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004", http.StatusServiceUnavailable}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005", http.StatusServiceUnavailable}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007", http.StatusServiceUnavailable}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006", http.StatusGatewayTimeout}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError translates err into a user message and HTTP status.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		unknownRule *validation.UnknownRuleError
		missingCols *validation.MissingColumnsError
		fieldErr    *tax.ValidationError
		tooLarge    *http.MaxBytesError
		pgErr       *pgconn.PgError
	)

	switch {
	case errors.As(err, &unknownRule):
		return UserMessage{unknownRule.Error(), "Check the rule id against GET /api/v1/rules", "RULE001", http.StatusBadRequest}
	case errors.As(err, &missingCols):
		return UserMessage{missingCols.Error(), "Check that all required columns are present in your file", "VAL004", http.StatusBadRequest}
	case errors.As(err, &fieldErr):
		return UserMessage{err.Error(), "Correct the listed fields and resend", "VAL003", http.StatusBadRequest}
	case errors.Is(err, errMalformedRequest):
		return UserMessage{err.Error(), "Send a valid JSON body and query parameters", "VAL007", http.StatusBadRequest}
	case errors.As(err, &tooLarge):
		return UserMessage{"Request exceeds maximum size limit", "Send a smaller file or fewer items", "FILE001", http.StatusRequestEntityTooLarge}
	case errors.Is(err, sheet.ErrInvalidWorkbook):
		return UserMessage{"File is not a valid Excel workbook", "Open the file in Excel and save it as .xlsx", "FILE002", http.StatusBadRequest}
	case errors.Is(err, sheet.ErrUnsupportedFile):
		return UserMessage{sheet.ErrUnsupportedFile.Error(), "Upload an .xlsx or .xls file", "FILE003", http.StatusBadRequest}
	case errors.Is(err, http.ErrMissingFile):
		return UserMessage{"No file was provided", "Attach the workbook in the \"file\" form field", "FILE004", http.StatusBadRequest}
	case errors.Is(err, tax.ErrNotFound):
		return UserMessage{err.Error(), "Verify the tax code", "NF001", http.StatusNotFound}
	case errors.Is(err, upload.ErrTooManyUploads):
		return UserMessage{"Too many uploads in progress", "Please wait a moment and try again", "UPL002", http.StatusServiceUnavailable}
	case errors.Is(err, upload.ErrShuttingDown):
		return UserMessage{"Server is shutting down", "Please try again shortly", "UPL003", http.StatusServiceUnavailable}
	case errors.Is(err, context.Canceled):
		return UserMessage{"Request was cancelled", "Please try again", "UPL004", http.StatusRequestTimeout}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{"Request timed out", "Try a smaller file or try again later", "UPL005", http.StatusGatewayTimeout}
	case errors.As(err, &pgErr):
		if msg, ok := mapPgError(pgErr); ok {
			return msg
		}
	}

	lower := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapPgError(pgErr *pgconn.PgError) (UserMessage, bool) {
	switch pgErr.Code {
	case pgUniqueViolation:
		return patternMessage("duplicate key"), true
	case pgForeignKeyViolation:
		return patternMessage("violates foreign key"), true
	case pgDeadlockDetected:
		return patternMessage("deadlock"), true
	case pgRaiseException:
		return UserMessage{pgErr.Message, "Correct the request and try again", "DB008", http.StatusUnprocessableEntity}, true
	}
	return UserMessage{}, false
}

func patternMessage(pattern string) UserMessage {
	for _, ep := range errorPatterns {
		if ep.pattern == pattern {
			return ep.msg
		}
	}
	return defaultMessage
}

// respondError logs the technical error and writes the mapped JSON response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if msg.Status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	respondErrorJSON(w, msg)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg UserMessage) {
	writeJSON(w, msg.Status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(context.Background()).Error("json encode error", "error", err)
	}
}
