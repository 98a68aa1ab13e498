package catchup

import "strings"

// Status text labels emitted by the node during fast catchup. Matching is
// substring based and case sensitive; the exact text is part of the node's
// output contract.
const (
	labelTotalAccounts     = "Catchpoint total accounts"
	labelAccountsProcessed = "Catchpoint accounts processed"
	labelTotalBlocks       = "Catchpoint total blocks"
	labelDownloadedBlocks  = "Catchpoint downloaded blocks"
)

// hasMarker reports whether the phase-start marker is present anywhere in the
// snapshot. Absence is a meaningful state (phase not yet started, or already
// finished), not an error.
func hasMarker(snapshot, marker string) bool {
	return strings.Contains(snapshot, marker)
}

// extractCount locates the line labeled by label and returns the first run of
// digits after the following colon. Anything unparsable yields 0: during
// early startup the node's status output may be incomplete, and a missing or
// garbled counter is treated as "nothing reported yet" rather than an error.
func extractCount(snapshot, label string) uint64 {
	i := strings.Index(snapshot, label)
	if i < 0 {
		return 0
	}
	rest := snapshot[i+len(label):]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return 0
	}
	rest = rest[colon+1:]

	// The snapshot is treated as one normalized blob: any whitespace,
	// including embedded newlines, may separate the colon from the value.
	var (
		n    uint64
		seen bool
	)
	for j := 0; j < len(rest); j++ {
		c := rest[j]
		if c >= '0' && c <= '9' {
			n = n*10 + uint64(c-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	if !seen {
		return 0
	}
	return n
}
