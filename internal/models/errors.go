package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies domain failures
type ErrorKind string

const (
	KindInvalidOrder              ErrorKind = "invalid_order"
	KindInvalidRequest            ErrorKind = "invalid_request"
	KindItemNotFound              ErrorKind = "item_not_found"
	KindOrderNotFound             ErrorKind = "order_not_found"
	KindIllegalTransition         ErrorKind = "illegal_transition"
	KindInvalidAssignment         ErrorKind = "invalid_assignment"
	KindCustomerResolutionFailed  ErrorKind = "customer_resolution_failed"
	KindUserLookupFailed          ErrorKind = "user_lookup_failed"
	KindNotificationPublishFailed ErrorKind = "notification_publish_failed"
	KindCacheUnavailable          ErrorKind = "cache_unavailable"
	KindInternal                  ErrorKind = "internal"
)

// Error is a domain failure carrying the status code reported to callers
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a domain Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *Error
	return errors.As(err, &domainErr) && domainErr.Kind == kind
}

func NewInvalidOrder(message string) *Error {
	return &Error{Kind: KindInvalidOrder, Status: http.StatusBadRequest, Message: message}
}

func NewInvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Status: http.StatusBadRequest, Message: message}
}

func NewItemNotFound(itemID int64) *Error {
	return &Error{
		Kind:    KindItemNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("Menu item %d not found", itemID),
	}
}

func NewOrderNotFound(orderID int64) *Error {
	return &Error{
		Kind:    KindOrderNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("Order %d not found", orderID),
	}
}

func NewIllegalTransition(target OrderStatus, role Role) *Error {
	return &Error{
		Kind:    KindIllegalTransition,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Role %s cannot set order status to %s", role, target),
	}
}

func NewInvalidAssignment(userID int64) *Error {
	return &Error{
		Kind:    KindInvalidAssignment,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("User %d is not a chef", userID),
	}
}

// NewCustomerResolutionFailed maps a remote failure status onto the caller-facing code
func NewCustomerResolutionFailed(remoteStatus int, message string) *Error {
	return &Error{
		Kind:    KindCustomerResolutionFailed,
		Status:  MapRemoteStatus(remoteStatus),
		Message: message,
	}
}

func NewUserLookupFailed(remoteStatus int, message string) *Error {
	return &Error{
		Kind:    KindUserLookupFailed,
		Status:  MapRemoteStatus(remoteStatus),
		Message: message,
	}
}

func NewNotificationPublishFailed(err error) *Error {
	return &Error{
		Kind:    KindNotificationPublishFailed,
		Status:  http.StatusInternalServerError,
		Message: "Failed to publish order notification",
		Err:     err,
	}
}

func NewCacheUnavailable(err error) *Error {
	return &Error{
		Kind:    KindCacheUnavailable,
		Status:  http.StatusInternalServerError,
		Message: "Cache unavailable",
		Err:     err,
	}
}

func NewInternal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// MapRemoteStatus keeps the remote codes callers understand and folds the rest into 500
func MapRemoteStatus(status int) int {
	switch status {
	case http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusBadRequest,
		http.StatusNotImplemented:
		return status
	default:
		return http.StatusInternalServerError
	}
}
