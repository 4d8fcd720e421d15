package query

import "errors"

// ErrNoSessionData means the session has no uploaded dataset, either
// because nothing was uploaded or because the cached copy expired.
var ErrNoSessionData = errors.New("no dataset uploaded for this session")
