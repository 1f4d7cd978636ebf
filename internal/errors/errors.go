// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable machine-readable error code returned to clients.
type Kind string

const (
	KindUnauthenticated           Kind = "unauthenticated"
	KindForbidden                 Kind = "forbidden"
	KindNotFound                  Kind = "not_found"
	KindInvalidInput              Kind = "invalid_input"
	KindDuplicateApplication      Kind = "duplicate_application"
	KindCampaignNotAccepting      Kind = "campaign_not_accepting_applications"
	KindCampaignClosed            Kind = "campaign_closed"
	KindApplicationAlreadyDecided Kind = "application_already_decided"
	KindInsufficientFunds         Kind = "insufficient_funds"
	KindIntegrityViolation        Kind = "integrity_violation"
	KindInternal                  Kind = "internal"
)

// AppError is a recoverable, typed failure. Anything that is not an AppError
// is treated as an infrastructure failure.
type AppError struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus maps the kind onto a response code.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindDuplicateApplication, KindCampaignNotAccepting, KindCampaignClosed, KindApplicationAlreadyDecided:
		return http.StatusConflict
	case KindInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

func Unauthenticated() error {
	return New(KindUnauthenticated, "authentication required")
}

func Forbidden(action string) error {
	return New(KindForbidden, fmt.Sprintf("not allowed to %s", action))
}

func InvalidInput(msg string) error {
	return New(KindInvalidInput, msg)
}

// NewNotFound reports an unknown id of the given resource kind.
func NewNotFound(resource, id string) error {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with ID %s not found", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
	}
}

func NewCampaignNotFound(id string) error {
	return NewNotFound("campaign", id)
}

func NewApplicationNotFound(id string) error {
	return NewNotFound("application", id)
}

func NewAccountNotFound(id string) error {
	return NewNotFound("account", id)
}

func DuplicateApplication(campaignID, creatorID string) error {
	return &AppError{
		Kind:    KindDuplicateApplication,
		Message: "creator has already applied to this campaign",
		Details: map[string]any{"campaign_id": campaignID, "creator_id": creatorID},
	}
}

func CampaignNotAccepting(campaignID, status string) error {
	return &AppError{
		Kind:    KindCampaignNotAccepting,
		Message: "campaign is not accepting applications",
		Details: map[string]any{"campaign_id": campaignID, "status": status},
	}
}

func CampaignClosed(campaignID string) error {
	return &AppError{
		Kind:    KindCampaignClosed,
		Message: "campaign is closed",
		Details: map[string]any{"campaign_id": campaignID},
	}
}

func ApplicationAlreadyDecided(applicationID, status string) error {
	return &AppError{
		Kind:    KindApplicationAlreadyDecided,
		Message: "application has already been decided",
		Details: map[string]any{"application_id": applicationID, "status": status},
	}
}

// InsufficientFunds carries the current balance so clients can prompt a purchase.
func InsufficientFunds(balance, required int64) error {
	return &AppError{
		Kind:    KindInsufficientFunds,
		Message: "Not enough tokens",
		Details: map[string]any{"balance": balance, "required": required},
	}
}

func IntegrityViolation(accountID string, balance, entrySum int64) error {
	return &AppError{
		Kind:    KindIntegrityViolation,
		Message: "ledger does not match balance",
		Details: map[string]any{"account_id": accountID, "balance": balance, "entry_sum": entrySum},
	}
}

// ContactLocked rejects a contact unlock on an application that was not accepted.
func ContactLocked(applicationID, status string) error {
	return &AppError{
		Kind:    KindForbidden,
		Message: "contact details are available only for accepted applications",
		Details: map[string]any{"application_id": applicationID, "status": status},
	}
}
