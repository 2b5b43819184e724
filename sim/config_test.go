package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inference-sim/ossim/sim/trace"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		want    Policy
		wantErr bool
	}{
		{"fcfs", PolicyFCFS, false},
		{"", PolicyFCFS, false},
		{"rr", PolicyRoundRobin, false},
		{"round-robin", PolicyRoundRobin, false},
		{"mlfq", PolicyMLFQ, false},
		{"sjf", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePolicy(tc.name)
			if tc.wantErr {
				assert.Error(t, err)
				assert.False(t, IsValidPolicy(tc.name))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.True(t, IsValidPolicy(tc.name))
		})
	}
}

func TestPolicy_Label(t *testing.T) {
	assert.Equal(t, "FCFS", PolicyFCFS.Label())
	assert.Equal(t, "RR", PolicyRoundRobin.Label())
	assert.Equal(t, "MLFQ", PolicyMLFQ.Label())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero quanta mean defaults", func(c *Config) { c.MLFQQuanta = [MLFQLevels]int{} }, false},
		{"unknown policy", func(c *Config) { c.Policy = "lottery" }, true},
		{"negative quantum", func(c *Config) { c.Quantum = -2 }, true},
		{"partial quanta", func(c *Config) { c.MLFQQuanta = [MLFQLevels]int{1, 0, 4, 8} }, true},
		{"unknown trace level", func(c *Config) { c.Trace.Level = "verbose" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Normalized_FillsDefaults(t *testing.T) {
	cfg := Config{Policy: "round-robin", Trace: trace.Config{}}

	got := cfg.normalized()

	assert.Equal(t, PolicyRoundRobin, got.Policy)
	assert.Equal(t, 1, got.Quantum)
	assert.Equal(t, DefaultMLFQQuanta, got.MLFQQuanta)
	assert.Equal(t, OSFileSystem{}, got.Files)
}
