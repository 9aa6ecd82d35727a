package gc

import "errors"

// ErrInvalidConfig is returned by NewCounter/NewSet when a duration
// parameter is zero or negative.
var ErrInvalidConfig = errors.New("invalid gc config")
