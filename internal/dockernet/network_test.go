package dockernet

import "testing"

func TestFindAvailableSubnet(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		used     map[string]bool
		expected string
	}{
		{
			name:     "no used subnets",
			base:     "172.29.0.0/16",
			used:     map[string]bool{},
			expected: "172.29.0.0/24",
		},
		{
			name:     "first /24 taken",
			base:     "172.29.0.0/16",
			used:     map[string]bool{"172.29.0.0/24": true},
			expected: "172.29.1.0/24",
		},
		{
			name:     "whole base range taken",
			base:     "172.29.0.0/16",
			used:     map[string]bool{"172.29.0.0/16": true},
			expected: "172.30.0.0/24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findAvailableSubnet(tt.base, tt.used)
			if err != nil {
				t.Fatalf("findAvailableSubnet() error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("findAvailableSubnet() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestIsSubnetUsed(t *testing.T) {
	used := map[string]bool{"172.29.0.0/16": true}

	if !isSubnetUsed("172.29.5.0/24", used) {
		t.Error("nested subnet should be considered used")
	}
	if isSubnetUsed("172.30.0.0/24", used) {
		t.Error("disjoint subnet should not be considered used")
	}
	if !isSubnetUsed("not-a-cidr", used) {
		t.Error("unparsable subnet should be treated as used")
	}
}
