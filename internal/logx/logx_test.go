package logx

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, err := New("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log, err = New("warn", "console")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)
}
