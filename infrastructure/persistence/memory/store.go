package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm-backend/application/ports"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	pkgerrors "crm-backend/pkg/errors"
)

// Store holds every collection behind one lock. It backs local
// development and tests; the capability answers come from the injected
// probe so capability-absent stores can be exercised too. The
// repository ports are implemented by thin views over the store.
type Store struct {
	mu            sync.RWMutex
	reminders     map[string]*entities.Reminder
	comments      map[string]*entities.Comment
	leads         map[string]*entities.Lead
	notifications map[string]*entities.Notification
	caps          ports.SchemaCapabilities
}

// NewStore creates an empty in-memory store
func NewStore(caps ports.SchemaCapabilities) *Store {
	return &Store{
		reminders:     make(map[string]*entities.Reminder),
		comments:      make(map[string]*entities.Comment),
		leads:         make(map[string]*entities.Lead),
		notifications: make(map[string]*entities.Notification),
		caps:          caps,
	}
}

// ReminderRepository is the reminder view over the store
type ReminderRepository struct{ store *Store }

// NewReminderRepository creates the reminder view
func NewReminderRepository(store *Store) *ReminderRepository {
	return &ReminderRepository{store: store}
}

// Save implements ports.ReminderRepository
func (r *ReminderRepository) Save(ctx context.Context, reminder *entities.Reminder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.reminders[reminder.ID()] = reminder
	return nil
}

// GetByID implements ports.ReminderRepository
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	reminder, ok := r.store.reminders[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("reminder " + id)
	}
	return reminder, nil
}

// Delete implements ports.ReminderRepository
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.reminders[id]; !ok {
		return pkgerrors.NewNotFoundError("reminder " + id)
	}
	delete(r.store.reminders, id)
	return nil
}

// ListForDoc implements ports.ReminderRepository
func (r *ReminderRepository) ListForDoc(ctx context.Context, ref valueobjects.DocRef) ([]*entities.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.list(func(rem *entities.Reminder) bool {
		return rem.Ref() == ref
	}), nil
}

// ListActiveForUser implements ports.ReminderRepository
func (r *ReminderRepository) ListActiveForUser(ctx context.Context, ref valueobjects.DocRef, user string) ([]*entities.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.list(func(rem *entities.Reminder) bool {
		return rem.Ref() == ref && rem.User() == user && rem.IsActive()
	}), nil
}

// list collects matching reminders ordered by remind-at ascending,
// creation ascending. Callers hold the lock.
func (r *ReminderRepository) list(match func(*entities.Reminder) bool) []*entities.Reminder {
	var out []*entities.Reminder
	for _, rem := range r.store.reminders {
		if match(rem) {
			out = append(out, rem)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RemindAt().Equal(out[j].RemindAt()) {
			return out[i].RemindAt().Before(out[j].RemindAt())
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// LatestOverdue implements ports.ReminderRepository
func (r *ReminderRepository) LatestOverdue(ctx context.Context, ref valueobjects.DocRef, now time.Time, user string) (*entities.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *entities.Reminder
	for _, rem := range r.store.reminders {
		if rem.Ref() != ref || !rem.IsOverdue(now) {
			continue
		}
		if user != "" && rem.User() != user {
			continue
		}
		if latest == nil || laterOverdue(rem, latest) {
			latest = rem
		}
	}
	return latest, nil
}

// laterOverdue reports whether a should replace b as the newest overdue
// reminder: greater remind-at, ties broken by most recent creation.
func laterOverdue(a, b *entities.Reminder) bool {
	if !a.RemindAt().Equal(b.RemindAt()) {
		return a.RemindAt().After(b.RemindAt())
	}
	return a.CreatedAt().After(b.CreatedAt())
}

// ListOverdueRefIDs implements ports.ReminderRepository
func (r *ReminderRepository) ListOverdueRefIDs(ctx context.Context, refType string, now time.Time, limit int) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, rem := range r.store.reminders {
		if rem.Ref().Type() != refType || !rem.IsOverdue(now) {
			continue
		}
		if _, dup := seen[rem.Ref().ID()]; dup {
			continue
		}
		seen[rem.Ref().ID()] = struct{}{}
		ids = append(ids, rem.Ref().ID())
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// LatestOverdueByDoc implements ports.ReminderRepository
func (r *ReminderRepository) LatestOverdueByDoc(ctx context.Context, refType string, refIDs []string, now time.Time, user string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(refIDs))
	for _, id := range refIDs {
		ref, err := valueobjects.NewDocRef(refType, id)
		if err != nil {
			return nil, err
		}
		latest, err := r.LatestOverdue(ctx, ref, now, user)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			result[id] = latest.RemindAt()
		}
	}
	return result, nil
}

// CommentRepository is the comment view over the store
type CommentRepository struct{ store *Store }

// NewCommentRepository creates the comment view
func NewCommentRepository(store *Store) *CommentRepository {
	return &CommentRepository{store: store}
}

// Save implements ports.CommentRepository
func (c *CommentRepository) Save(ctx context.Context, comment *entities.Comment) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.comments[comment.ID()] = comment
	return nil
}

// GetByID implements ports.CommentRepository
func (c *CommentRepository) GetByID(ctx context.Context, id string) (*entities.Comment, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	comment, ok := c.store.comments[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("comment " + id)
	}
	return comment, nil
}

// ListForDoc implements ports.CommentRepository
func (c *CommentRepository) ListForDoc(ctx context.Context, ref valueobjects.DocRef) ([]*entities.Comment, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var out []*entities.Comment
	for _, cm := range c.store.comments {
		if cm.Ref() == ref && cm.Type() == entities.CommentTypeComment {
			out = append(out, cm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out, nil
}

// LatestForDoc implements ports.CommentRepository
func (c *CommentRepository) LatestForDoc(ctx context.Context, ref valueobjects.DocRef) (*entities.Comment, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.latestForDoc(ref), nil
}

// latestForDoc returns the newest user comment. Callers hold the lock.
func (c *CommentRepository) latestForDoc(ref valueobjects.DocRef) *entities.Comment {
	var latest *entities.Comment
	for _, cm := range c.store.comments {
		if cm.Ref() != ref || cm.Type() != entities.CommentTypeComment {
			continue
		}
		if latest == nil || cm.CreatedAt().After(latest.CreatedAt()) {
			latest = cm
		}
	}
	return latest
}

// SetDelayedFlags implements ports.CommentRepository
func (c *CommentRepository) SetDelayedFlags(ctx context.Context, ref valueobjects.DocRef, delayed bool, user string) (int, error) {
	if !c.store.caps.CommentHasDelayed(ctx) {
		return 0, nil
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	touched := 0
	for _, cm := range c.store.comments {
		if cm.Ref() != ref || cm.Type() != entities.CommentTypeComment {
			continue
		}
		if user != "" && cm.Owner() != user {
			continue
		}
		if cm.Delayed() != delayed {
			cm.SetDelayed(delayed)
			touched++
		}
	}
	return touched, nil
}

// SetDelayed implements ports.CommentRepository
func (c *CommentRepository) SetDelayed(ctx context.Context, id string, delayed bool) error {
	if !c.store.caps.CommentHasDelayed(ctx) {
		return nil
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	comment, ok := c.store.comments[id]
	if !ok {
		return pkgerrors.NewNotFoundError("comment " + id)
	}
	comment.SetDelayed(delayed)
	return nil
}

// AnyDelayedByDoc implements ports.CommentRepository
func (c *CommentRepository) AnyDelayedByDoc(ctx context.Context, refType string, refIDs []string) (map[string]bool, error) {
	if !c.store.caps.CommentHasDelayed(ctx) {
		return nil, nil
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	result := make(map[string]bool, len(refIDs))
	for _, id := range refIDs {
		result[id] = false
	}
	for _, cm := range c.store.comments {
		if cm.Ref().Type() != refType || cm.Type() != entities.CommentTypeComment || !cm.Delayed() {
			continue
		}
		if _, wanted := result[cm.Ref().ID()]; wanted {
			result[cm.Ref().ID()] = true
		}
	}
	return result, nil
}

// LatestCreatedByDoc implements ports.CommentRepository
func (c *CommentRepository) LatestCreatedByDoc(ctx context.Context, refType string, refIDs []string) (map[string]time.Time, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	result := make(map[string]time.Time, len(refIDs))
	for _, id := range refIDs {
		ref, err := valueobjects.NewDocRef(refType, id)
		if err != nil {
			return nil, err
		}
		if latest := c.latestForDoc(ref); latest != nil {
			result[id] = latest.CreatedAt()
		}
	}
	return result, nil
}

// LeadRepository is the lead view over the store
type LeadRepository struct{ store *Store }

// NewLeadRepository creates the lead view
func NewLeadRepository(store *Store) *LeadRepository {
	return &LeadRepository{store: store}
}

// Save implements ports.LeadRepository
func (l *LeadRepository) Save(ctx context.Context, lead *entities.Lead) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.leads[lead.ID()] = lead
	return nil
}

// GetByID implements ports.LeadRepository
func (l *LeadRepository) GetByID(ctx context.Context, id string) (*entities.Lead, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	lead, ok := l.store.leads[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("lead " + id)
	}
	return lead, nil
}

// SetDelayed implements ports.LeadRepository
func (l *LeadRepository) SetDelayed(ctx context.Context, id string, delayed bool) error {
	if !l.store.caps.LeadHasDelayed(ctx) {
		return nil
	}

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	lead, ok := l.store.leads[id]
	if !ok {
		return pkgerrors.NewNotFoundError("lead " + id)
	}
	lead.SetDelayed(delayed)
	return nil
}

// SetLastComment implements ports.LeadRepository
func (l *LeadRepository) SetLastComment(ctx context.Context, id string, snippet string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	lead, ok := l.store.leads[id]
	if !ok {
		return pkgerrors.NewNotFoundError("lead " + id)
	}
	lead.SetLastComment(snippet)
	return nil
}

// NotificationRepository is the notification view over the store
type NotificationRepository struct{ store *Store }

// NewNotificationRepository creates the notification view
func NewNotificationRepository(store *Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

// Save implements ports.NotificationRepository
func (n *NotificationRepository) Save(ctx context.Context, notification *entities.Notification) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	n.store.notifications[notification.ID()] = notification
	return nil
}

// GetByID implements ports.NotificationRepository
func (n *NotificationRepository) GetByID(ctx context.Context, id string) (*entities.Notification, error) {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	notification, ok := n.store.notifications[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("notification " + id)
	}
	return notification, nil
}

// ListForUser implements ports.NotificationRepository
func (n *NotificationRepository) ListForUser(ctx context.Context, user string, limit int) ([]*entities.Notification, error) {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()

	var out []*entities.Notification
	for _, notif := range n.store.notifications {
		if notif.ForUser() == user {
			out = append(out, notif)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
