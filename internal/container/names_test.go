package container

import (
	"strings"
	"testing"
)

func TestCondenseHostName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "short name unchanged",
			input:    "nodebox-algod",
			expected: "nodebox-algod",
		},
		{
			name:     "63 chars unchanged",
			input:    strings.Repeat("a", 63),
			expected: strings.Repeat("a", 63),
		},
		{
			name:     "64 chars condensed",
			input:    strings.Repeat("a", 64),
			expected: strings.Repeat("a", 30) + "_._" + strings.Repeat("a", 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CondenseHostName(tt.input); got != tt.expected {
				t.Errorf("CondenseHostName(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeResourceName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "valid name unchanged",
			input:    "nodebox-algod_1.data",
			expected: "nodebox-algod_1.data",
		},
		{
			name:     "slashes replaced",
			input:    "nodebox/algod",
			expected: "nodebox_algod",
		},
		{
			name:     "spaces and colons replaced",
			input:    "my sandbox:1",
			expected: "my_sandbox_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeResourceName(tt.input); got != tt.expected {
				t.Errorf("SanitizeResourceName(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestImageRef(t *testing.T) {
	if got := NewImage("algorand/algod", "stable", "").Ref(); got != "algorand/algod:stable" {
		t.Errorf("Ref() = %q", got)
	}
	if got := NewImage("postgres", "", "").Ref(); got != "postgres:latest" {
		t.Errorf("Ref() with empty tag = %q", got)
	}
}
