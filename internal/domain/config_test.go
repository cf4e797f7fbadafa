package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *EngineConfig {
	return &EngineConfig{
		Governance:          testAddress(0x10),
		ExecutionAuthority:  testAddress(0x20),
		AllowedAsset:        testAddress(0xAA),
		MaxRecipients:       100,
		BatchTimeoutSeconds: 86400,
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestEngineConfig_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr error
	}{
		{"zero max recipients", func(c *EngineConfig) { c.MaxRecipients = 0 }, ErrInvalidMaxRecipients},
		{"max recipients beyond bitmap", func(c *EngineConfig) { c.MaxRecipients = MaxScheduleRecipients + 1 }, ErrInvalidMaxRecipients},
		{"zero governance", func(c *EngineConfig) { c.Governance = Address{} }, ErrInvalidAuthority},
		{"zero execution authority", func(c *EngineConfig) { c.ExecutionAuthority = Address{} }, ErrInvalidAuthority},
		{"zero asset", func(c *EngineConfig) { c.AllowedAsset = Address{} }, ErrInvalidAsset},
		{"timeout below one hour", func(c *EngineConfig) { c.BatchTimeoutSeconds = MinBatchTimeoutSeconds - 1 }, ErrInvalidBatchTimeout},
		{"timeout above thirty days", func(c *EngineConfig) { c.BatchTimeoutSeconds = MaxBatchTimeoutSeconds + 1 }, ErrInvalidBatchTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestParseAddress(t *testing.T) {
	addr := testAddress(0x5A)
	parsed, err := ParseAddress(addr.String())
	assert.NoError(t, err)
	assert.Equal(t, addr, parsed)

	_, err = ParseAddress("zz")
	assert.Error(t, err)

	_, err = ParseAddress("abcd")
	assert.Error(t, err)
}
