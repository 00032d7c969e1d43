package crawler

import "errors"

// ErrNilRepository is returned by New when no repository is given.
var ErrNilRepository = errors.New("crawler: repository is nil")
