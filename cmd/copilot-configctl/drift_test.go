package main

import (
	"os"
	"testing"
)

func TestEnvOrDefault_PrefersEnvWhenSet(t *testing.T) {
	t.Setenv("COPILOT_TEST_DRIFT_VAR", "from-env")
	if got := envOrDefault("COPILOT_TEST_DRIFT_VAR", "fallback"); got != "from-env" {
		t.Errorf("envOrDefault() = %q, want %q", got, "from-env")
	}
}

func TestEnvOrDefault_FallsBackWhenUnset(t *testing.T) {
	os.Unsetenv("COPILOT_TEST_DRIFT_VAR_UNSET")
	if got := envOrDefault("COPILOT_TEST_DRIFT_VAR_UNSET", "fallback"); got != "fallback" {
		t.Errorf("envOrDefault() = %q, want %q", got, "fallback")
	}
}
