package b3Scraper

import "errors"

var (
	ErrElementNotFound  = errors.New("error page size select not found")
	ErrOptionParse      = errors.New("error page size option is not an integer")
	ErrTableNotRendered = errors.New("error table not rendered")
)
