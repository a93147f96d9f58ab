package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReturnsLogger(t *testing.T) {
	l := New("test")
	assert.NotNil(t, l)
	// Must not panic.
	l.Infof("hello %s", "world")
	l.Debugw("fields", map[string]any{"k": 1})
}

func TestNewDevFormat(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := New("test")
	assert.NotNil(t, l)
	l.Warnf("console writer path")
}
