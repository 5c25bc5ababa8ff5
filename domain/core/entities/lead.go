package entities

import (
	"time"

	pkgerrors "crm-backend/pkg/errors"

	"github.com/google/uuid"
)

// Lead is the reference document the reconciler serves. It owns zero or
// more reminders and comments; Delayed is a derived mirror of the newest
// comment's flag, kept for cheap list filtering.
type Lead struct {
	id          string
	name        string
	owner       string
	team        []string
	delayed     bool
	lastComment string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewLead creates a lead owned by the given user
func NewLead(name, owner string, now time.Time) (*Lead, error) {
	if name == "" {
		return nil, pkgerrors.NewValidationError("lead name cannot be empty")
	}
	if owner == "" {
		return nil, pkgerrors.NewValidationError("owner cannot be empty")
	}

	return &Lead{
		id:        uuid.New().String(),
		name:      name,
		owner:     owner,
		team:      []string{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructLead rebuilds a lead from repository data
func ReconstructLead(
	id string,
	name string,
	owner string,
	team []string,
	delayed bool,
	lastComment string,
	createdAt time.Time,
	updatedAt time.Time,
) *Lead {
	if team == nil {
		team = []string{}
	}
	return &Lead{
		id:          id,
		name:        name,
		owner:       owner,
		team:        team,
		delayed:     delayed,
		lastComment: lastComment,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (l *Lead) ID() string           { return l.id }
func (l *Lead) Name() string         { return l.name }
func (l *Lead) Owner() string        { return l.owner }
func (l *Lead) Team() []string       { return l.team }
func (l *Lead) Delayed() bool        { return l.delayed }
func (l *Lead) LastComment() string  { return l.lastComment }
func (l *Lead) CreatedAt() time.Time { return l.createdAt }
func (l *Lead) UpdatedAt() time.Time { return l.updatedAt }

// ReadableBy reports whether the user may read this lead: the owner and
// team members may; elevated roles are checked by the caller.
func (l *Lead) ReadableBy(user string) bool {
	if user == l.owner {
		return true
	}
	for _, member := range l.team {
		if member == user {
			return true
		}
	}
	return false
}

// AddTeamMember shares the lead with another user. Adding an existing
// member is a no-op.
func (l *Lead) AddTeamMember(user string) {
	for _, member := range l.team {
		if member == user {
			return
		}
	}
	l.team = append(l.team, user)
}

// SetDelayed updates the derived delayed mirror
func (l *Lead) SetDelayed(delayed bool) {
	l.delayed = delayed
}

// SetLastComment updates the denormalized newest-comment snippet
func (l *Lead) SetLastComment(snippet string) {
	l.lastComment = snippet
}
