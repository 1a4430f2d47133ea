package core

import "testing"

func TestAggregateSharesEmpty(t *testing.T) {
	b := AggregateShares("g1", nil)
	if b.GroupID != "g1" {
		t.Errorf("expected group id g1, got %q", b.GroupID)
	}
	if len(b.Members) != 0 {
		t.Errorf("expected no members, got %d", len(b.Members))
	}
}

func TestAggregateSharesSingleMemberRoundTrip(t *testing.T) {
	// Three 10.00 expenses for a single-member group.
	var shares []UserShare
	for i := 0; i < 3; i++ {
		shares = append(shares, EqualShare(mustCents(t, "10.00"), "u1", []string{"u1"})...)
	}
	b := AggregateShares("g1", shares)
	if len(b.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(b.Members))
	}
	m, ok := b.FindMember("u1")
	if !ok {
		t.Fatal("no entry for u1")
	}
	if got := m.PaidShare.String(); got != "30.00" {
		t.Errorf("paid: expected 30.00, got %s", got)
	}
	if got := m.OwedShare.String(); got != "30.00" {
		t.Errorf("owed: expected 30.00, got %s", got)
	}
	if got := m.NetBalance.String(); got != "0.00" {
		t.Errorf("net: expected 0.00, got %s", got)
	}
}

func TestAggregateSharesAcrossExpenses(t *testing.T) {
	group := []string{"a", "b", "c"}
	shares := EqualShare(mustCents(t, "42.00"), "a", group)
	shares = append(shares, EqualShare(mustCents(t, "42.00"), "b", group)...)

	b := AggregateShares("g1", shares)
	if len(b.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(b.Members))
	}

	a, _ := b.FindMember("a")
	if a.PaidShare.String() != "42.00" || a.OwedShare.String() != "28.00" || a.NetBalance.String() != "14.00" {
		t.Errorf("a: got paid=%s owed=%s net=%s", a.PaidShare, a.OwedShare, a.NetBalance)
	}
	bb, _ := b.FindMember("b")
	if bb.NetBalance.String() != "14.00" {
		t.Errorf("b net: expected 14.00, got %s", bb.NetBalance)
	}
	c, _ := b.FindMember("c")
	if c.PaidShare.String() != "0.00" || c.OwedShare.String() != "28.00" || c.NetBalance.String() != "-28.00" {
		t.Errorf("c: got paid=%s owed=%s net=%s", c.PaidShare, c.OwedShare, c.NetBalance)
	}

	var net int64
	for _, m := range b.Members {
		net += m.NetBalance.Cents
	}
	if net != 0 {
		t.Errorf("group net: expected 0, got %d cents", net)
	}
}

func TestSumShares(t *testing.T) {
	shares := EqualShare(mustCents(t, "30.00"), "a", []string{"a", "b", "c"})
	shares = append(shares, EqualShare(mustCents(t, "12.00"), "b", []string{"a", "b"})...)

	got := SumShares("a", shares)
	if got.PaidShare.String() != "30.00" {
		t.Errorf("paid: expected 30.00, got %s", got.PaidShare)
	}
	if got.OwedShare.String() != "16.00" {
		t.Errorf("owed: expected 16.00, got %s", got.OwedShare)
	}
	if got.NetBalance.String() != "14.00" {
		t.Errorf("net: expected 14.00, got %s", got.NetBalance)
	}

	if none := SumShares("nobody", shares); none.PaidShare.Cents != 0 || none.NetBalance.Cents != 0 {
		t.Errorf("unknown user should sum to zero, got %+v", none)
	}
}
