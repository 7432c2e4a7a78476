package models

type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindDuplicateEmail     ErrorKind = "DuplicateEmail"
	KindInvalidCredentials ErrorKind = "InvalidCredentials"
	KindUserNotFound       ErrorKind = "UserNotFound"
	KindNotAuthenticated   ErrorKind = "NotAuthenticated"
	KindForbidden          ErrorKind = "Forbidden"
	KindStoreUnavailable   ErrorKind = "StoreUnavailable"
	KindOrderNotFound      ErrorKind = "OrderNotFound"
	KindInvalidInput       ErrorKind = "InvalidInput"
	KindInvalidOrder       ErrorKind = "InvalidOrder"
	KindInvalidStatus      ErrorKind = "InvalidStatus"
	KindTooManyAttempts    ErrorKind = "TooManyAttempts"
	KindInternal           ErrorKind = "Internal"
)

// Result is the success-or-failure shape handed to UI callers.
type Result struct {
	Success bool      `json:"success"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
}
