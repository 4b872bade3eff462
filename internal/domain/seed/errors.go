package seed

import "errors"

// ErrSeed wraps any failure that leaves the collection partially seeded.
var ErrSeed = errors.New("seed collection failed")
