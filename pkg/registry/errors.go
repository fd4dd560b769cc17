package registry

import "fmt"

// ConfigurationError reports invalid registry state: duplicate
// registrations discovered while building, or an active-origin set that
// makes dispatch ambiguous. It is a configuration failure, distinct from
// render-time failures, so hosts can fail fast before any output is
// produced.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: "registry: " + fmt.Sprintf(format, args...)}
}
