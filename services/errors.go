package services

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed caller input (bad date, empty selector).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConfigurationError reports a selector that matched no configured team, or a
// matched team whose credentials are not present in the environment.
type ConfigurationError struct {
	Msg        string
	ValidTeams []string
}

func (e *ConfigurationError) Error() string {
	if len(e.ValidTeams) == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (valid teams: %s)", e.Msg, strings.Join(e.ValidTeams, ", "))
}

// NotFoundError is the valid "nothing scheduled" terminal outcome.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }
