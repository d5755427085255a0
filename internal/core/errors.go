package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies action failures. The web layer maps kinds to HTTP
// status codes; the sanitizer maps messages to user-facing text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindExternalService
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindExternalService:
		return "external_service"
	default:
		return "unknown"
	}
}

// Messages carried by ActionError. Each one has an entry in the safe-message
// table, so they are the only strings that ever reach a client verbatim.
const (
	MsgNotAuthenticated      = "You must be signed in to do that"
	MsgNoAccess              = "You do not have access to this directory"
	MsgDirectoryNotFound     = "Directory not found"
	MsgStartupNotFound       = "Startup not found"
	MsgSlugTaken             = "Slug already taken"
	MsgInvalidSlug           = "Invalid slug"
	MsgNameRequired          = "Name is required"
	MsgDescriptionRequired   = "Description is required"
	MsgWebsiteRequired       = "Website URL is required"
	MsgInvalidURL            = "Invalid URL"
	MsgInvalidEmail          = "Invalid email address"
	MsgInvalidCoordinates    = "Invalid coordinates"
	MsgInvalidDate           = "Invalid founded date"
	MsgInvalidAmount         = "Invalid amount raised"
	MsgTooManyTags           = "You can select at most 2 tags"
	MsgInvalidTeamSize       = "Invalid team size"
	MsgInvalidFundingStage   = "Invalid funding stage"
	MsgStartupExists         = "A startup with this name already exists in this directory"
	MsgImageUploadFailed     = "Failed to upload image"
	MsgLocationSearchFailed  = "Location search failed"
	MsgTooManyRequests       = "Too many requests"
	MsgInvalidRequest        = "Invalid request"
	MsgInvalidVisibilityFlag = "Invalid visibility value"
)

// Store-level sentinels. Store implementations return these (possibly wrapped)
// so the service can translate them without knowing the driver.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateSlug  = errors.New("duplicate slug")
)

// ActionError is the single error type returned by every Service action.
// Message is always one of the Msg* constants; Err keeps the technical cause
// for server-side logging.
type ActionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) ErrorKind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func unauthenticated() error {
	return &ActionError{Kind: KindUnauthenticated, Message: MsgNotAuthenticated}
}

func forbidden() error {
	return &ActionError{Kind: KindForbidden, Message: MsgNoAccess}
}

func notFound(msg string) error {
	return &ActionError{Kind: KindNotFound, Message: msg}
}

func invalid(msg string) error {
	return &ActionError{Kind: KindValidation, Message: msg}
}

func external(msg string, err error) error {
	return &ActionError{Kind: KindExternalService, Message: msg, Err: err}
}

// internal wraps an unexpected failure. The message is the operation name and
// never reaches a client: the sanitizer collapses it to the generic fallback.
func internal(op string, err error) error {
	return &ActionError{Kind: KindUnknown, Message: op, Err: err}
}
