package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Port:        9000,
		WindowBytes: 5000,
		TimeoutMs:   10000,
		PLoss:       0,
		PCorrupt:    0,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsPortOutOfRange(t *testing.T) {
	c := validConfig()
	c.Port = 0
	assert.ErrorIs(t, c.Validate(), ErrConfig)

	c.Port = 70000
	assert.ErrorIs(t, c.Validate(), ErrConfig)
}

func TestValidateRejectsWindowBytesNotMultipleOfPacketSize(t *testing.T) {
	c := validConfig()
	c.WindowBytes = 5500
	assert.ErrorIs(t, c.Validate(), ErrConfig)
}

func TestValidateRejectsWindowBytesOutOfPacketRange(t *testing.T) {
	c := validConfig()
	c.WindowBytes = 0
	assert.ErrorIs(t, c.Validate(), ErrConfig)

	c.WindowBytes = 16000
	assert.ErrorIs(t, c.Validate(), ErrConfig)
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	c := validConfig()
	c.TimeoutMs = 0
	assert.ErrorIs(t, c.Validate(), ErrConfig)
}

func TestValidateRejectsProbabilitiesOutsideUnitRange(t *testing.T) {
	c := validConfig()
	c.PLoss = 1.5
	assert.ErrorIs(t, c.Validate(), ErrConfig)

	c = validConfig()
	c.PCorrupt = -0.1
	assert.ErrorIs(t, c.Validate(), ErrConfig)
}

func TestValidateAggregatesAllProblems(t *testing.T) {
	c := Config{Port: -1, WindowBytes: 999, TimeoutMs: -5, PLoss: 2, PCorrupt: 2}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "window bytes")
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "loss probability")
	assert.Contains(t, err.Error(), "corruption probability")
}

func TestWindowCapPackets(t *testing.T) {
	c := validConfig()
	c.WindowBytes = 9000
	assert.Equal(t, 9, c.WindowCapPackets())
}
