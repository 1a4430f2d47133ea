// Package memory is an in-memory ledger mirror for tests and local runs.
package memory

import (
	"context"
	"sync"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

type Mirror struct {
	mu       sync.Mutex
	balances map[string]core.GroupBalance
}

var _ ledger.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{balances: make(map[string]core.GroupBalance)}
}

// MirrorGroupBalance replaces the stored balance for the group.
func (m *Mirror) MirrorGroupBalance(_ context.Context, b core.GroupBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[b.GroupID] = cloneBalance(b)
	return nil
}

// Balance returns the last mirrored balance of a group, if any.
func (m *Mirror) Balance(groupID string) (core.GroupBalance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[groupID]
	if !ok {
		return core.GroupBalance{}, false
	}
	return cloneBalance(b), true
}

func cloneBalance(b core.GroupBalance) core.GroupBalance {
	out := b
	out.Members = append([]core.MemberBalance(nil), b.Members...)
	return out
}
