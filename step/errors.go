package step

import "errors"

// ErrExhausted is returned by Next when a supplier has nothing left.
var ErrExhausted = errors.New("supplier exhausted")
