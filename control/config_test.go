package control

import (
	"strings"
	"testing"
)

func TestProfilesValidate(t *testing.T) {
	for _, name := range []string{"default", "72mph", "88mph"} {
		cfg, err := ProfileByName(name)
		if err != nil {
			t.Fatalf("ProfileByName(%q): %v", name, err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("profile %q does not validate: %v", name, err)
		}
	}
	if _, err := ProfileByName("ludicrous"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestLatencySteps(t *testing.T) {
	cfg := Profile72MPH()
	// 100 ms latency at 50 ms steps covers 2 slots.
	if got := cfg.LatencySteps(); got != 2 {
		t.Errorf("LatencySteps() = %d, want 2", got)
	}

	cfg = Profile88MPH()
	// 100 ms latency at 100 ms steps covers 1 slot.
	if got := cfg.LatencySteps(); got != 1 {
		t.Errorf("LatencySteps() = %d, want 1", got)
	}
}

func TestValidateRejectsDegenerateConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short horizon", func(c *Config) { c.Horizon = 1 }, "horizon"},
		{"zero dt", func(c *Config) { c.DtS = 0 }, "dt_s"},
		{"negative latency", func(c *Config) { c.LatencyS = -0.1 }, "latency_s"},
		{"latency swallows horizon", func(c *Config) { c.LatencyS = 10 }, "held fixed"},
		{"zero steering limit", func(c *Config) { c.MaxDelta = 0 }, "actuator limits"},
		{"negative weight", func(c *Config) { c.WeightDDelta = -1 }, "weight_ddelta"},
		{"zero Lf", func(c *Config) { c.Lf = 0 }, "lf_m"},
		{"zero budget", func(c *Config) { c.MaxSolveTimeS = 0 }, "max_solve_time_s"},
	}

	for _, tc := range cases {
		cfg := ProfileDefault()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}
