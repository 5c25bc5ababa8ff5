package entities

import (
	"testing"
	"time"

	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entityBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testRef(t *testing.T) valueobjects.DocRef {
	t.Helper()
	ref, err := valueobjects.NewDocRef(domaincfg.RefTypeLead, "lead-1")
	require.NoError(t, err)
	return ref
}

func TestNewReminder_Validation(t *testing.T) {
	ref := testRef(t)
	future := entityBase.Add(time.Hour)

	tests := []struct {
		name string
		fn   func() (*Reminder, error)
	}{
		{"zero ref", func() (*Reminder, error) {
			return NewReminder("", valueobjects.DocRef{}, "alice", future, "call", "", entityBase)
		}},
		{"empty user", func() (*Reminder, error) {
			return NewReminder("", ref, "", future, "call", "", entityBase)
		}},
		{"zero remind_at", func() (*Reminder, error) {
			return NewReminder("", ref, "alice", time.Time{}, "call", "", entityBase)
		}},
		{"remind_at in the past", func() (*Reminder, error) {
			return NewReminder("", ref, "alice", entityBase.Add(-time.Minute), "call", "", entityBase)
		}},
		{"remind_at equal to now", func() (*Reminder, error) {
			return NewReminder("", ref, "alice", entityBase, "call", "", entityBase)
		}},
		{"blank description", func() (*Reminder, error) {
			return NewReminder("", ref, "alice", future, "   ", "", entityBase)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestNewReminder_GeneratesIDWhenAbsent(t *testing.T) {
	ref := testRef(t)
	rem, err := NewReminder("", ref, "alice", entityBase.Add(time.Hour), "call back", "", entityBase)
	require.NoError(t, err)
	assert.NotEmpty(t, rem.ID())
	assert.Equal(t, ReminderStatusOpen, rem.Status())

	pinned, err := NewReminder("rem-1", ref, "alice", entityBase.Add(time.Hour), "call back", "", entityBase)
	require.NoError(t, err)
	assert.Equal(t, "rem-1", pinned.ID())
}

func TestReminder_ActiveFallsBackToDone(t *testing.T) {
	ref := testRef(t)

	// Stores that predate the status attribute reconstruct reminders
	// with an empty status and only the done flag.
	open := ReconstructReminder("rem-1", ref, "alice", entityBase.Add(-time.Hour), "", false, "call", "", entityBase.Add(-2*time.Hour))
	assert.True(t, open.IsActive())
	assert.True(t, open.IsOverdue(entityBase))

	closed := ReconstructReminder("rem-2", ref, "alice", entityBase.Add(-time.Hour), "", true, "call", "", entityBase.Add(-2*time.Hour))
	assert.False(t, closed.IsActive())
	assert.False(t, closed.IsOverdue(entityBase))
}

func TestReminder_OverdueIsStrict(t *testing.T) {
	ref := testRef(t)
	rem, err := NewReminder("", ref, "alice", entityBase.Add(time.Hour), "call", "", entityBase)
	require.NoError(t, err)

	assert.False(t, rem.IsOverdue(entityBase.Add(time.Hour)), "remind-at equal to now is not overdue")
	assert.True(t, rem.IsOverdue(entityBase.Add(time.Hour+time.Second)))

	rem.MarkSent()
	assert.False(t, rem.IsOverdue(entityBase.Add(2*time.Hour)))
	assert.Equal(t, ReminderStatusSent, rem.Status())
}
