package core

import (
	"strings"

	"github.com/rs/zerolog"
)

// Environment is the deployment stage a process runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether e is production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// LogLevel is the minimum level logged in e.
func (e Environment) LogLevel() zerolog.Level {
	switch e {
	case Production, Staging:
		return zerolog.InfoLevel
	case Testing:
		return zerolog.WarnLevel
	default:
		return zerolog.DebugLevel
	}
}

// Decode lets envconfig normalise APP_ENV.
func (e *Environment) Decode(value string) error {
	*e = ParseEnvironment(value)
	return nil
}

// ParseEnvironment maps v, case-insensitively, to a known environment.
// Unknown values fall back to Development.
func ParseEnvironment(v string) Environment {
	switch env := Environment(strings.ToLower(strings.TrimSpace(v))); env {
	case Production, Staging, Testing:
		return env
	case "prod":
		return Production
	default:
		return Development
	}
}
