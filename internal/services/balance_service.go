package services

import (
	"context"
	"fmt"
	"strings"

	"divvy/internal/cache"
	"divvy/internal/core"
	"divvy/internal/store"
)

// BalanceService computes group and user balances from stored shares.
// Group balances are cached; expense events invalidate the group's entry.
type BalanceService struct {
	shares store.ShareReader
	groups *cache.LRUCache[core.GroupBalance]
}

func NewBalanceService(shares store.ShareReader, groups *cache.LRUCache[core.GroupBalance]) *BalanceService {
	return &BalanceService{shares: shares, groups: groups}
}

// GroupBalance aggregates the shares of every non-deleted expense in the
// group. A group with no expenses yields an empty member list.
func (s *BalanceService) GroupBalance(ctx context.Context, groupID string) (core.GroupBalance, error) {
	if strings.TrimSpace(groupID) == "" {
		return core.GroupBalance{}, core.ErrEmptyGroupID
	}

	if s.groups != nil {
		if cached, ok := s.groups.Get(groupID); ok {
			return cached, nil
		}
	}

	shares, err := s.shares.GroupShares(ctx, groupID)
	if err != nil {
		return core.GroupBalance{}, fmt.Errorf("load group shares: %w", err)
	}

	balance := core.AggregateShares(groupID, shares)
	if s.groups != nil {
		s.groups.Set(groupID, balance)
	}
	return balance, nil
}

// UserBalance is the user's net position across all their groups.
func (s *BalanceService) UserBalance(ctx context.Context, userID string) (core.MemberBalance, error) {
	if strings.TrimSpace(userID) == "" {
		return core.MemberBalance{}, core.ErrEmptyUserID
	}

	shares, err := s.shares.UserShares(ctx, userID)
	if err != nil {
		return core.MemberBalance{}, fmt.Errorf("load user shares: %w", err)
	}

	return core.SumShares(userID, shares), nil
}

// Invalidate drops the cached balance of one group. Called when an expense
// event touches the group.
func (s *BalanceService) Invalidate(groupID string) {
	if s.groups != nil {
		s.groups.Delete(groupID)
	}
}
