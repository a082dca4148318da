package constants

import "errors"

// Errors
var (
	ErrInvalidResponse  = errors.New("invalid Feishu response")
	ErrNoAppCredentials = errors.New("app id or app secret not set")
	ErrNoBaseURL        = errors.New("base url not set")
	ErrNoRefreshToken   = errors.New("refresh token not set")
	ErrTreeTooDeep      = errors.New("block tree exceeds maximum depth")
	ErrPageLoop         = errors.New("pagination did not advance")
)
