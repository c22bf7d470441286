package main

import (
	"testing"

	"mejapos/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", ManagerPIN: "123456"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", ManagerPIN: "739154"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidatePINStrength(t *testing.T) {
	for _, pin := range []string{"111111", "123456", "987654", "121212"} {
		if err := validatePINStrength(pin); err == nil {
			t.Fatalf("expected PIN %q to be rejected", pin)
		}
	}
	if err := validatePINStrength("739154"); err != nil {
		t.Fatalf("expected PIN to pass, got %v", err)
	}
}
