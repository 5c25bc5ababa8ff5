package services

import (
	"context"

	"crm-backend/application/ports"
	domaincfg "crm-backend/domain/config"
	"crm-backend/domain/core/entities"
	"crm-backend/domain/core/valueobjects"
	"crm-backend/pkg/auth"
	pkgerrors "crm-backend/pkg/errors"
)

// LeadPermissionChecker answers access questions from lead ownership and
// team membership. Managers bypass the team check.
type LeadPermissionChecker struct {
	leads     ports.LeadRepository
	domainCfg *domaincfg.DomainConfig
}

// NewLeadPermissionChecker creates a permission checker backed by the
// lead repository
func NewLeadPermissionChecker(leads ports.LeadRepository, domainCfg *domaincfg.DomainConfig) *LeadPermissionChecker {
	return &LeadPermissionChecker{
		leads:     leads,
		domainCfg: domainCfg,
	}
}

// CanRead implements ports.PermissionChecker. A reference to a document
// that does not exist is unreadable, not an error.
func (p *LeadPermissionChecker) CanRead(ctx context.Context, ref valueobjects.DocRef, user *auth.UserContext) (bool, error) {
	if user == nil {
		return true, nil
	}
	if !p.domainCfg.SupportsReconciliation(ref.Type()) {
		return false, nil
	}

	lead, err := p.leads.GetByID(ctx, ref.ID())
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if user.IsManager() {
		return true, nil
	}
	return lead.ReadableBy(user.UserID), nil
}

// CanDeleteReminder implements ports.PermissionChecker. The reminder's
// owner and managers may delete it.
func (p *LeadPermissionChecker) CanDeleteReminder(ctx context.Context, reminder *entities.Reminder, user *auth.UserContext) (bool, error) {
	if user == nil {
		return true, nil
	}
	if user.IsManager() {
		return true, nil
	}
	return reminder.OwnedBy(user.UserID), nil
}
