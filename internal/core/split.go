package core

// EqualShare splits cost evenly across the group and returns one UserShare
// per member. The payer is assumed to be part of the group; their record
// carries the full paid amount and is appended after the remaining members,
// which keep their input order. Callers must match records by user id, not
// by position.
//
// The common share is rounded half-up to the cent, so the net balances of a
// split sum to zero only within a cent for costs that do not divide evenly.
//
// An empty group yields a nil slice, not an error.
func EqualShare(cost Money, payerID string, group []string) []UserShare {
	if len(group) == 0 {
		return nil
	}

	n := int64(len(group))
	common := cost.Cents / n
	if 2*(cost.Cents%n) >= n {
		common++
	}

	payer := UserShare{
		UserID:     payerID,
		PaidShare:  cost,
		OwedShare:  Money{Cents: common},
		NetBalance: Money{Cents: cost.Cents - common},
	}

	shares := make([]UserShare, 0, len(group))
	for _, userID := range group {
		if userID == payerID {
			continue
		}
		shares = append(shares, UserShare{
			UserID:     userID,
			PaidShare:  Money{},
			OwedShare:  Money{Cents: common},
			NetBalance: Money{Cents: -common},
		})
	}
	return append(shares, payer)
}
