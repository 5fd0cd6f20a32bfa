package b3Scraper

import (
	"fmt"
	"strconv"
	"strings"
)

// Option is one <option> of the page size select.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// pickMaxOption returns the option whose text is the largest integer. Any
// option that is not a plain integer is an error, never skipped.
func pickMaxOption(options []Option) (Option, error) {
	if len(options) == 0 {
		return Option{}, fmt.Errorf("%w: select has no options", ErrOptionParse)
	}

	best := -1
	maxSize := 0
	for i, o := range options {
		size, err := strconv.Atoi(strings.TrimSpace(o.Text))
		if err != nil {
			return Option{}, fmt.Errorf("%w: option %q", ErrOptionParse, o.Text)
		}
		if best == -1 || size > maxSize {
			best, maxSize = i, size
		}
	}

	res := options[best]
	if strings.TrimSpace(res.Value) == "" {
		res.Value = strings.TrimSpace(res.Text)
	}
	return res, nil
}
