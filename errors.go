package ephemeral

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine is used before Build
	// completed or after a nil receiver.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrEmailRequired is returned when an operation is called with an
	// empty email.
	ErrEmailRequired = errors.New("email required")
	// ErrUserIDRequired is returned when a reset is requested without a
	// user id.
	ErrUserIDRequired = errors.New("user id required")
	// ErrVerificationInvalid is returned when a code does not match or no
	// code is outstanding for the email.
	ErrVerificationInvalid = errors.New("verification code invalid")
	// ErrVerificationExpired is returned when the outstanding code is past
	// its expiry; the caller should request a new one.
	ErrVerificationExpired = errors.New("verification code expired")
	// ErrVerificationLocked is returned once the attempt ceiling is
	// reached; the record is deleted and a new code must be issued.
	ErrVerificationLocked = errors.New("verification attempts exceeded")
	// ErrVerificationUnavailable is returned when a code cannot be issued
	// or checked because the backing store is unreachable.
	ErrVerificationUnavailable = errors.New("verification backend unavailable")
	// ErrResetPending is returned when a reset token is requested while
	// one is still outstanding for the email.
	ErrResetPending = errors.New("password reset already pending")
	// ErrResetUnavailable is returned when a reset token cannot be issued
	// because the backing store is unreachable.
	ErrResetUnavailable = errors.New("password reset backend unavailable")
)
