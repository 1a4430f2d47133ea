package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Never       RepeatInterval = "never"
	Weekly      RepeatInterval = "weekly"
	Fortnightly RepeatInterval = "fortnightly"
	Monthly     RepeatInterval = "monthly"
	Yearly      RepeatInterval = "yearly"
)

type (
	// RepeatInterval is the cadence at which an expense repeats.
	RepeatInterval string

	Money struct {
		Cents int64
	}

	User struct {
		ID              string `json:"id"`
		FirstName       string `json:"firstName,omitempty"`
		Email           string `json:"email,omitempty"`
		DefaultCurrency string `json:"defaultCurrency,omitempty"`
	}

	// UserShare is one participant's slice of a single expense.
	// NetBalance is always PaidShare minus OwedShare.
	UserShare struct {
		UserID     string `json:"userId"`
		PaidShare  Money  `json:"paidShare"`
		OwedShare  Money  `json:"owedShare"`
		NetBalance Money  `json:"netBalance"`
	}

	Expense struct {
		ID             string         `json:"id"`
		Cost           Money          `json:"cost"`
		Description    string         `json:"description,omitempty"`
		CurrencyCode   string         `json:"currencyCode,omitempty"`
		GroupID        string         `json:"groupId"`
		Date           time.Time      `json:"date"`
		RepeatInterval RepeatInterval `json:"repeatInterval,omitempty"`
		CreatedBy      User           `json:"createdBy"`
		CreatedAt      time.Time      `json:"createdAt"`
		UpdatedAt      time.Time      `json:"updatedAt"`
		DeletedAt      *time.Time     `json:"deletedAt,omitempty"`
		Shares         []UserShare    `json:"users"`
	}

	Group struct {
		ID                string    `json:"id"`
		Name              string    `json:"name"`
		GroupType         string    `json:"groupType,omitempty"`
		SimplifyByDefault bool      `json:"simplifyByDefault"`
		Members           []User    `json:"members"`
		UpdatedAt         time.Time `json:"updatedAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountRange        = errors.New("amount out of range")
	ErrEmptyGroupID       = errors.New("empty group id")
	ErrEmptyUserID        = errors.New("empty user id")
	ErrEmptyGroupName     = errors.New("empty group name")
	ErrBadInterval        = errors.New("invalid repeat interval")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrGroupNameTooLong   = errors.New("group name too long (max 100 characters)")
	ErrDuplicateMember    = errors.New("duplicate group member")
)

func (r RepeatInterval) Valid() bool {
	switch r {
	case Never, Weekly, Fortnightly, Monthly, Yearly:
		return true
	}
	return false
}

// Repeats reports whether the interval materializes new expense instances.
func (r RepeatInterval) Repeats() bool {
	return r.Valid() && r != Never
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrEmptyUserID
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Cost.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.GroupID) == "" {
		return ErrEmptyGroupID
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if e.RepeatInterval != "" && !e.RepeatInterval.Valid() {
		return ErrBadInterval
	}
	return e.CreatedBy.Validate()
}

// Deleted reports whether the expense is soft-deleted.
func (e Expense) Deleted() bool {
	return e.DeletedAt != nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyGroupName
	}
	if len(g.Name) > 100 {
		return ErrGroupNameTooLong
	}
	seen := make(map[string]struct{}, len(g.Members))
	for _, m := range g.Members {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// MemberIDs returns the ids of all group members, in member order.
func (g Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
