// # Error Codes Reference
//
// Every failure shown to a user carries a support code derived from its kind,
// so users can quote it and support staff can find the matching log line.
//
//	AUTH001 - Unauthenticated: no session on a session-only action
//	AUTH002 - Forbidden: the access guard denied the directory
//	NF001   - Not found: directory or startup does not exist
//	VAL001  - Validation: a form field was missing or malformed
//	EXT001  - External service: image host or geocoder failed
//	ERR000  - Unknown: check application logs for the technical error
//
// # Sanitizing
//
// Only messages listed in safeMessages are ever shown verbatim (after friendly
// substitution). Anything else collapses to one of two generic strings:
// RedactedMessage when the text looks like it leaks implementation detail,
// GenericMessage otherwise. The raw text is always logged server-side.

package core

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/d21hq/d21/internal/logging"
)

const (
	// GenericMessage is returned for empty input and unrecognised messages.
	GenericMessage = "Something went wrong. Please try again."

	// RedactedMessage is returned when a message matches a leak pattern.
	RedactedMessage = "An error occurred while processing your request."
)

// UserMessage is the client-facing rendering of an error.
type UserMessage struct {
	Message string // Sanitized, user-friendly text
	Code    string // Support reference, see package docs
}

// safeMessages maps exact action messages to the text users see.
var safeMessages = map[string]string{
	MsgNotAuthenticated:      "Please sign in to continue",
	MsgNoAccess:              "You do not have access to this directory",
	MsgDirectoryNotFound:     "Directory not found",
	MsgStartupNotFound:       "Startup not found",
	MsgSlugTaken:             "This slug is already taken. Please choose another one.",
	MsgInvalidSlug:           "Slugs may only contain lowercase letters, numbers and hyphens",
	MsgNameRequired:          "Name is required",
	MsgDescriptionRequired:   "Description is required",
	MsgWebsiteRequired:       "Website URL is required",
	MsgInvalidURL:            "Please enter a valid URL",
	MsgInvalidEmail:          "Please enter a valid email address",
	MsgInvalidCoordinates:    "Latitude and longitude must be valid numbers",
	MsgInvalidDate:           "Please enter a valid founded date",
	MsgInvalidAmount:         "Amount raised must be a number",
	MsgTooManyTags:           "You can select at most 2 tags",
	MsgInvalidTeamSize:       "Please choose a valid team size",
	MsgInvalidFundingStage:   "Please choose a valid funding stage",
	MsgStartupExists:         "A startup with this name already exists in this directory",
	MsgImageUploadFailed:     "Failed to upload image. Please try a different image URL.",
	MsgLocationSearchFailed:  "Location search is unavailable right now",
	MsgTooManyRequests:       "Too many requests. Please wait a moment and try again.",
	MsgInvalidRequest:        "Invalid request",
	MsgInvalidVisibilityFlag: "Visibility must be true or false",
}

// leakPatterns flag messages that mention storage, runtime or deployment
// internals. Order is irrelevant; any match redacts.
var leakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(select|insert|update|delete)\b.+\b(from|into|set|where)\b`),
	regexp.MustCompile(`(?i)\bsql`),
	regexp.MustCompile(`(?i)database`),
	regexp.MustCompile(`(?i)prisma|pgx|pgconn|postgres`),
	regexp.MustCompile(`(?i)stack`),
	regexp.MustCompile(`(?i)trace`),
	regexp.MustCompile(`(?i)econnrefused|connection refused`),
	regexp.MustCompile(`\b[A-Z][A-Z0-9_]{2,}=`),
	regexp.MustCompile(`\.go:\d+`),
	regexp.MustCompile(`(?i)relation "[^"]*"`),
	regexp.MustCompile(`(?i)constraint|duplicate key`),
}

var stackTraces atomic.Bool

// EnableStackTraces attaches goroutine stacks to sanitizer log records.
// Only turned on in development.
func EnableStackTraces(enabled bool) {
	stackTraces.Store(enabled)
}

// SanitizeError converts any error into a string that is safe to show a user.
func SanitizeError(err error) string {
	return SanitizeErrorContext(context.Background(), err)
}

// SanitizeErrorContext is SanitizeError with request-scoped logging.
func SanitizeErrorContext(ctx context.Context, err error) string {
	if err == nil {
		return GenericMessage
	}
	return sanitize(ctx, messageOf(err), err)
}

// SanitizeMessage applies the sanitizing rules to a raw message string.
func SanitizeMessage(msg string) string {
	return sanitize(context.Background(), msg, nil)
}

// MapError returns the sanitized message and support code for err.
func MapError(ctx context.Context, err error) UserMessage {
	return UserMessage{
		Message: SanitizeErrorContext(ctx, err),
		Code:    ErrorCode(err),
	}
}

// ErrorCode returns the support code for err's kind, or "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindUnauthenticated:
		return "AUTH001"
	case KindForbidden:
		return "AUTH002"
	case KindNotFound:
		return "NF001"
	case KindValidation:
		return "VAL001"
	case KindExternalService:
		return "EXT001"
	default:
		return "ERR000"
	}
}

// IsSafeMessage reports whether msg is shown verbatim (after substitution).
func IsSafeMessage(msg string) bool {
	_, ok := safeMessages[msg]
	return ok
}

// messageOf prefers the typed action message over the wrapped cause.
func messageOf(err error) string {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func sanitize(ctx context.Context, msg string, cause error) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return GenericMessage
	}

	if friendly, ok := safeMessages[msg]; ok {
		return friendly
	}

	logger := logging.FromContext(ctx)
	attrs := []any{"message", msg}
	if cause != nil {
		attrs = append(attrs, "error", cause.Error())
	}
	if stackTraces.Load() {
		attrs = append(attrs, "stack", string(debug.Stack()))
	}

	detail := msg
	if cause != nil {
		detail = cause.Error()
	}
	for _, re := range leakPatterns {
		if re.MatchString(msg) || re.MatchString(detail) {
			logger.Error("redacted error message", attrs...)
			return RedactedMessage
		}
	}

	logger.Log(ctx, slog.LevelWarn, "unrecognised error message", attrs...)
	return GenericMessage
}
