package core

type (
	// MemberBalance is one user's consolidated position.
	MemberBalance struct {
		UserID     string `json:"userId"`
		PaidShare  Money  `json:"paidShare"`
		OwedShare  Money  `json:"owedShare"`
		NetBalance Money  `json:"netBalance"`
	}

	// GroupBalance is the per-user aggregation of all shares in a group.
	GroupBalance struct {
		GroupID string          `json:"groupId"`
		Members []MemberBalance `json:"members"`
	}
)

// AggregateShares folds share records into one balance entry per user.
// Sums are carried in cents and never re-rounded per record. Users appear
// in first-seen order; callers must look entries up by user id.
func AggregateShares(groupID string, shares []UserShare) GroupBalance {
	index := make(map[string]int, len(shares))
	members := make([]MemberBalance, 0, len(shares))
	for _, s := range shares {
		i, ok := index[s.UserID]
		if !ok {
			i = len(members)
			index[s.UserID] = i
			members = append(members, MemberBalance{UserID: s.UserID})
		}
		members[i].PaidShare.Cents += s.PaidShare.Cents
		members[i].OwedShare.Cents += s.OwedShare.Cents
		members[i].NetBalance.Cents += s.NetBalance.Cents
	}
	return GroupBalance{GroupID: groupID, Members: members}
}

// SumShares collapses all of one user's share records into a single entry.
func SumShares(userID string, shares []UserShare) MemberBalance {
	out := MemberBalance{UserID: userID}
	for _, s := range shares {
		if s.UserID != userID {
			continue
		}
		out.PaidShare.Cents += s.PaidShare.Cents
		out.OwedShare.Cents += s.OwedShare.Cents
		out.NetBalance.Cents += s.NetBalance.Cents
	}
	return out
}

// FindMember returns the balance entry for a user id, if present.
func (b GroupBalance) FindMember(userID string) (MemberBalance, bool) {
	for _, m := range b.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return MemberBalance{}, false
}
