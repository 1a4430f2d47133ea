package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRepeatIntervalValid(t *testing.T) {
	for _, r := range []RepeatInterval{Never, Weekly, Fortnightly, Monthly, Yearly} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []RepeatInterval{"daily", "sometimes", "NEVER"} {
		if r.Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
	if Never.Repeats() {
		t.Error("never should not repeat")
	}
	if !Monthly.Repeats() {
		t.Error("monthly should repeat")
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Cost:      Money{Cents: 4200},
		GroupID:   "g1",
		CreatedBy: User{ID: "u1"},
		Date:      time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Expense)
		wantErr error
	}{
		{"zero cost", func(e *Expense) { e.Cost = Money{} }, ErrInvalidAmount},
		{"negative cost", func(e *Expense) { e.Cost = Money{Cents: -100} }, ErrInvalidAmount},
		{"empty group", func(e *Expense) { e.GroupID = "  " }, ErrEmptyGroupID},
		{"empty payer", func(e *Expense) { e.CreatedBy = User{} }, ErrEmptyUserID},
		{"bad interval", func(e *Expense) { e.RepeatInterval = "daily" }, ErrBadInterval},
	}
	for _, tc := range cases {
		e := valid
		tc.mutate(&e)
		if err := e.Validate(); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}

	long := valid
	long.Description = strings.Repeat("x", 201)
	if err := long.Validate(); err == nil {
		t.Error("long description should be rejected")
	}
}

func TestGroupValidate(t *testing.T) {
	g := Group{Name: "trip", Members: []User{{ID: "a"}, {ID: "b"}}}
	if err := g.Validate(); err != nil {
		t.Fatalf("valid group rejected: %v", err)
	}

	if err := (Group{Name: " "}).Validate(); !errors.Is(err, ErrEmptyGroupName) {
		t.Errorf("expected ErrEmptyGroupName, got %v", err)
	}
	dup := Group{Name: "trip", Members: []User{{ID: "a"}, {ID: "a"}}}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate members should be rejected")
	}
	anon := Group{Name: "trip", Members: []User{{FirstName: "John"}}}
	if err := anon.Validate(); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestExpenseDeleted(t *testing.T) {
	e := Expense{}
	if e.Deleted() {
		t.Error("fresh expense should not be deleted")
	}
	now := time.Now()
	e.DeletedAt = &now
	if !e.Deleted() {
		t.Error("expense with DeletedAt should be deleted")
	}
}
