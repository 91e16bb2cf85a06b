// Package anchor provides AnchorWriter implementations. Anchoring is an
// optional attestation of a fingerprint on an external ledger; the registry
// is fully functional without it.
package anchor

import (
	"context"
	"strings"

	"github.com/gctu/certificate-registry/internal/core/ports"
)

const (
	ModeDisabled  = "disabled"
	ModeSimulated = "simulated"
)

// placeholderTxRef is the transaction reference emitted by the simulator,
// matching the shape of a real chain transaction hash.
var placeholderTxRef = "0x" + strings.Repeat("0", 64)

// Disabled reports the anchor backend as unavailable on every call.
type Disabled struct{}

func (Disabled) Write(ctx context.Context, hash string) (string, error) {
	return "", ports.ErrAnchorUnavailable
}

// Simulator stands in for a chain client during development: it accepts every
// fingerprint and returns a fixed placeholder transaction reference.
type Simulator struct{}

func (Simulator) Write(ctx context.Context, hash string) (string, error) {
	return placeholderTxRef, nil
}

// New returns the writer for the configured mode. Unknown modes fall back to
// Disabled so a misconfigured anchor can never block issuance.
func New(mode string) ports.AnchorWriter {
	if mode == ModeSimulated {
		return Simulator{}
	}
	return Disabled{}
}
