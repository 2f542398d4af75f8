package core

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	t.Parallel()
	cases := map[string]Environment{
		"production":  Production,
		" PROD ":      Production,
		"Staging":     Staging,
		"testing":     Testing,
		"":            Development,
		"qa-cluster":  Development,
		"development": Development,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseEnvironment(in), in)
	}
}

func TestEnvironmentDecodeAndLevel(t *testing.T) {
	t.Parallel()
	var e Environment
	assert.NoError(t, e.Decode("Production"))
	assert.True(t, e.IsProduction())
	assert.Equal(t, zerolog.InfoLevel, e.LogLevel())
	assert.Equal(t, zerolog.WarnLevel, Testing.LogLevel())
	assert.Equal(t, zerolog.DebugLevel, Development.LogLevel())
}
