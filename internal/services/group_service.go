package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"divvy/internal/core"
	"divvy/internal/store"
)

// CreateGroupSpec carries the client-supplied fields of a new group.
type CreateGroupSpec struct {
	Name      string `json:"name"`
	GroupType string `json:"groupType"`
	Users     []struct {
		UserID    string `json:"userId"`
		FirstName string `json:"firstName"`
	} `json:"users"`
}

// GroupService manages group lifecycle and membership.
type GroupService struct {
	groups store.GroupStore
	now    func() time.Time
}

func NewGroupService(groups store.GroupStore) *GroupService {
	return &GroupService{groups: groups, now: time.Now}
}

// Create persists a new group with a generated id. Duplicate members are
// collapsed, first occurrence wins. Debt simplification is on for every
// new group.
func (s *GroupService) Create(ctx context.Context, spec CreateGroupSpec) (core.Group, error) {
	members := make([]core.User, 0, len(spec.Users))
	seen := make(map[string]struct{}, len(spec.Users))
	for _, u := range spec.Users {
		id := strings.TrimSpace(u.UserID)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, core.User{ID: id, FirstName: u.FirstName})
	}

	g := core.Group{
		ID:                uuid.NewString(),
		Name:              spec.Name,
		GroupType:         spec.GroupType,
		SimplifyByDefault: true,
		Members:           members,
		UpdatedAt:         s.now().UTC(),
	}

	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}

	if err := s.groups.CreateGroup(ctx, g); err != nil {
		return core.Group{}, fmt.Errorf("save group: %w", err)
	}

	return g, nil
}

func (s *GroupService) Get(ctx context.Context, id string) (core.Group, error) {
	return s.groups.GetGroup(ctx, id)
}

// ListForUser returns every group the user belongs to.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]core.Group, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrEmptyUserID
	}
	return s.groups.ListGroupsForUser(ctx, userID)
}
