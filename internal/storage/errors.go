package storage

import "errors"

// ErrStorageWrite wraps every failed write to a partition file, the catalog or
// object storage.
var ErrStorageWrite = errors.New("error storage write")
