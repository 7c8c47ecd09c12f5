package integration

import "errors"

// ErrUnknownKind is returned by Build for an unrecognised workflow kind.
var ErrUnknownKind = errors.New("unknown workflow kind")
