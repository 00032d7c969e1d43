package robots

import "errors"

// ErrInvalidUserAgent is returned by query methods when the user agent is
// empty or consists only of white space.
var ErrInvalidUserAgent = errors.New("user agent must not be empty")
