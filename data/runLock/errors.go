package runLock

import "errors"

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("error another run is in progress")
