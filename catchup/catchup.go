// Package catchup drives a node's two-phase fast catchup to completion.
//
// Fast catchup bootstraps a node from a catchpoint instead of replaying the
// full chain history. The node first restores the account state the
// catchpoint describes, then downloads the blocks between the catchpoint and
// the current tip. The node reports progress only through its free-text
// status output, so the monitor infers phase boundaries from the presence
// and disappearance of per-phase marker lines in that text.
package catchup

import "context"

// Phase identifies one of the two sequential stages of a fast catchup.
type Phase int

const (
	// PhaseAccounts restores the account state contained in the catchpoint.
	PhaseAccounts Phase = iota
	// PhaseBlocks downloads blocks between the catchpoint and the tip.
	PhaseBlocks
)

func (p Phase) String() string {
	switch p {
	case PhaseAccounts:
		return "accounts"
	case PhaseBlocks:
		return "blocks"
	default:
		return "unknown"
	}
}

// Node is the minimal surface the monitor needs from a running node.
type Node interface {
	// StartCatchup instructs the node to begin fast catchup towards the
	// given catchpoint label. It returns once the node has accepted or
	// rejected the request.
	StartCatchup(ctx context.Context, label string) error

	// Status returns the node's current status as unstructured text.
	// No retrying happens here; failures propagate to the caller.
	Status(ctx context.Context) (string, error)
}
