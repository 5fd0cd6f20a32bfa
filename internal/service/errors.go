package service

import "errors"

var ErrEmptyCatalog = errors.New("error catalog has no snapshot")
