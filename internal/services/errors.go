package services

import (
	"errors"

	"storefront/internal/kvstore"
	"storefront/internal/models"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("admin access required")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrStoreUnavailable   = kvstore.ErrStoreUnavailable
)

var errorKinds = []struct {
	err  error
	kind models.ErrorKind
}{
	{ErrStoreUnavailable, models.KindStoreUnavailable},
	{ErrDuplicateEmail, models.KindDuplicateEmail},
	{ErrInvalidCredentials, models.KindInvalidCredentials},
	{ErrUserNotFound, models.KindUserNotFound},
	{ErrNotAuthenticated, models.KindNotAuthenticated},
	{ErrForbidden, models.KindForbidden},
	{ErrOrderNotFound, models.KindOrderNotFound},
	{ErrInvalidInput, models.KindInvalidInput},
	{ErrInvalidOrder, models.KindInvalidOrder},
	{ErrInvalidStatus, models.KindInvalidStatus},
	{ErrTooManyAttempts, models.KindTooManyAttempts},
}

// KindOf classifies err; unknown errors are KindInternal.
func KindOf(err error) models.ErrorKind {
	if err == nil {
		return models.KindNone
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return models.KindInternal
}

func ResultOf(err error) models.Result {
	if err == nil {
		return models.Result{Success: true}
	}
	return models.Result{
		Success: false,
		Kind:    KindOf(err),
		Message: err.Error(),
	}
}
