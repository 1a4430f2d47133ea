// Package ledger defines the outbound port for mirroring group balances to
// an external ledger. Adapters live in the subpackages google and memory.
package ledger

import (
	"context"

	"divvy/internal/core"
)

// Mirror writes the current balance of a group to an external ledger,
// replacing whatever the ledger held for that group before.
type Mirror interface {
	MirrorGroupBalance(ctx context.Context, b core.GroupBalance) error
}
