package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrListingNotFound   = errors.New("listing not found")
	ErrShortlistNotFound = errors.New("shortlist not found")
	ErrInvalidShortlist  = errors.New("invalid shortlist")
	ErrInvalidLead       = errors.New("invalid lead")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrSourceUnavailable = errors.New("listing source unavailable")
	ErrNarrationRejected = errors.New("narration rejected")
	ErrJobNotFound       = errors.New("job not found")
	ErrInternal          = errors.New("internal error")
)
