package sources

import "fmt"

// ConfigError reports a source whose format/schema combination cannot be
// extracted. It is a startup error and is never recovered per run.
type ConfigError struct {
	Source  string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	prefix := "source config error"
	if e.Source != "" {
		prefix = fmt.Sprintf("source config error (%s)", e.Source)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
