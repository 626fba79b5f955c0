package extraction

import (
	"fmt"

	"github.com/13maks37/sanctions-checker/internal/sources"
)

// ParseError reports content that could not be decoded or parsed.
type ParseError struct {
	Source  string
	Format  sources.Format
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	where := string(e.Format)
	if e.Source != "" {
		where = fmt.Sprintf("%s %s", e.Source, e.Format)
	}
	if e.Cause != nil {
		return fmt.Sprintf("parse error (%s): %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error (%s): %s", where, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
