package catchup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleStatus = `Last committed block: 1000
Sync Time: 12.0s
Catchpoint: 23470000#ABCD
Catchpoint total accounts: 500
Catchpoint accounts processed: 120
Genesis ID: testnet-v1.0
`

func TestExtractCount(t *testing.T) {
	tests := []struct {
		name     string
		snapshot string
		label    string
		expected uint64
	}{
		{
			name:     "total accounts",
			snapshot: sampleStatus,
			label:    labelTotalAccounts,
			expected: 500,
		},
		{
			name:     "accounts processed",
			snapshot: sampleStatus,
			label:    labelAccountsProcessed,
			expected: 120,
		},
		{
			name:     "label absent",
			snapshot: sampleStatus,
			label:    labelTotalBlocks,
			expected: 0,
		},
		{
			name:     "empty snapshot",
			snapshot: "",
			label:    labelTotalAccounts,
			expected: 0,
		},
		{
			name:     "missing colon",
			snapshot: "Catchpoint total accounts",
			label:    labelTotalAccounts,
			expected: 0,
		},
		{
			name:     "no digits after colon",
			snapshot: "Catchpoint total accounts: pending",
			label:    labelTotalAccounts,
			expected: 0,
		},
		{
			name:     "value separated by newline",
			snapshot: "Catchpoint total accounts:\n  42",
			label:    labelTotalAccounts,
			expected: 42,
		},
		{
			name:     "digits end at non-digit",
			snapshot: "Catchpoint downloaded blocks: 1234abc",
			label:    labelDownloadedBlocks,
			expected: 1234,
		},
		{
			name:     "zero is a value, not absence",
			snapshot: "Catchpoint accounts processed: 0",
			label:    labelAccountsProcessed,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, extractCount(tt.snapshot, tt.label))
		})
	}
}

func TestHasMarker(t *testing.T) {
	require.True(t, hasMarker(sampleStatus, labelTotalAccounts))
	require.False(t, hasMarker(sampleStatus, labelDownloadedBlocks))

	// matching is case sensitive on the literal label text.
	require.False(t, hasMarker("catchpoint total accounts: 5", labelTotalAccounts))
}
