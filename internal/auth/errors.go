package auth

import "errors"

var (
	ErrInvalidCredential    = errors.New("wrong password")
	ErrNotRegistered        = errors.New("user not registered")
	ErrEmailInUse           = errors.New("user already registered")
	ErrWeakPassword         = errors.New("password must be at least 6 characters")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrTooManyRequests      = errors.New("too many attempts, try again later")
	ErrPopupBlocked         = errors.New("popup blocked by the browser")
	ErrPopupClosed          = errors.New("popup closed before completing sign in")
	ErrUnauthorizedOrigin   = errors.New("unauthorized origin for federated sign-in")
	ErrFederatedUnavailable = errors.New("federated sign-in is not configured")
	ErrNoSession            = errors.New("no active session")
)
