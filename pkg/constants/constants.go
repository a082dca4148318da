package constants

import "time"

const (
	// DefaultBaseURL is the Feishu Open Platform endpoint root.
	DefaultBaseURL = "https://open.feishu.cn/open-apis"

	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 10 * time.Second

	// TokenSafetyMargin is how long before the server-reported expiry a cached
	// token is treated as stale and refreshed.
	TokenSafetyMargin = 60 * time.Second

	// MaxPageSize is the largest page the block-children listing accepts.
	MaxPageSize = 100

	// MaxChildrenPerBatch is the ceiling on children in one batch_create call.
	MaxChildrenPerBatch = 50

	// MaxPageIterations guards the pagination loop against a store that keeps
	// echoing a page token.
	MaxPageIterations = 1000

	// MaxTreeDepth bounds block tree recursion.
	MaxTreeDepth = 64
)

// Remote response codes. code 0 in the response envelope signals success;
// the groups below are the families the client classifies.
const (
	CodeOK = 0

	CodeAccessTokenExpired = 99991401
	CodeTenantTokenInvalid = 99991663
	CodeUserTokenInvalid   = 99991677
	CodeTooManyRequests    = 99991400
	CodeForbidden          = 99991672

	CodeInvalidParam     = 1770001
	CodeNotFound         = 1770002
	CodePermissionDenied = 1770013
)
