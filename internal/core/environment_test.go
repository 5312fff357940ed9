package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	tests := map[string]Environment{
		"production":   Production,
		" PROD ":       Production,
		"staging":      Staging,
		"test":         Testing,
		"development":  Development,
		"":             Development,
		"unrecognized": Development,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseEnvironment(in), "input %q", in)
	}
	assert.True(t, ParseEnvironment("production").IsProduction())
}
