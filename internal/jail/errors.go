package jail

import (
	"errors"
	"fmt"
)

// ErrInvalidState marks programmer errors: callers operated on something
// whose lifecycle forbids it. These are never expected in normal operation.
var ErrInvalidState = errors.New("invalid state")

var (
	ErrFacilityDisposed = fmt.Errorf("%w: facility disposed", ErrInvalidState)
	ErrRootFacility     = fmt.Errorf("%w: root facility cannot be removed", ErrInvalidState)
	ErrNotStarted       = fmt.Errorf("%w: registry not started", ErrInvalidState)
)

var (
	ErrFacilityExists = errors.New("facility already exists")
	ErrInvalidName    = errors.New("invalid name")
	ErrNoPlacement    = errors.New("no placement point available")
)

var (
	ErrPointExists   = errors.New("placement point already exists")
	ErrPointNotFound = errors.New("placement point not found")
	ErrNotPrisoner   = errors.New("user is not a prisoner")
)
