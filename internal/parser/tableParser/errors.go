package tableParser

import "errors"

var ErrTableNotFound = errors.New("error table not found in markup")
