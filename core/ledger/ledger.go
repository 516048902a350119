// Package ledger holds each project's ownership split and its audit trail.
// Shares are fixed-point basis points; a non-empty split always sums to
// exactly 100%. The split is only ever replaced wholesale by Rebalance.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"orpheus/core/event"
	"orpheus/core/registry"
	"orpheus/fault"
	"orpheus/logger"
	"orpheus/model"
	"orpheus/repository"
)

// Ledger is the ownership ledger. It shares the per-project critical
// section with the registry: every mutation runs inside WithProject.
type Ledger struct {
	registry *registry.Registry

	mu     sync.RWMutex // guards splits and audits map headers
	splits map[string]model.SplitEntryList
	audits map[string][]model.SplitAudit

	repo repository.ProjectRepository
	bus  *event.Bus
	now  func() time.Time
}

// NewLedger creates an ownership ledger bound to the registry's critical
// sections. repo may be nil when running without durable storage.
func NewLedger(reg *registry.Registry, repo repository.ProjectRepository, bus *event.Bus) *Ledger {
	return &Ledger{
		registry: reg,
		splits:   make(map[string]model.SplitEntryList),
		audits:   make(map[string][]model.SplitAudit),
		repo:     repo,
		bus:      bus,
		now:      time.Now,
	}
}

// Load rebuilds splits and audit trails from the repository at startup.
func (l *Ledger) Load(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}

	splits, err := l.repo.LoadSplits(ctx)
	if err != nil {
		return err
	}
	audits, err := l.repo.LoadAudits(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range splits {
		l.splits[s.ProjectID] = append(model.SplitEntryList(nil), s.Entries...)
	}
	for _, a := range audits {
		l.audits[a.ProjectID] = append(l.audits[a.ProjectID], *a)
	}
	return nil
}

// GetSplit returns the project's current split. A project that has never
// been rebalanced defaults to owner = 100%.
func (l *Ledger) GetSplit(_ context.Context, projectID string) (model.SplitEntryList, error) {
	var out model.SplitEntryList
	err := l.registry.WithProject(projectID, func(v *registry.View) error {
		l.mu.RLock()
		stored, ok := l.splits[projectID]
		l.mu.RUnlock()
		if ok && len(stored) > 0 {
			out = append(model.SplitEntryList(nil), stored...)
			return nil
		}
		out = model.SplitEntryList{{IdentityID: v.Project.OwnerID, BasisPoints: model.TotalBasisPoints}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Rebalance atomically replaces the project's split. Owner only. Every key
// must be a current collaborator, no share may be negative, and the shares
// must sum to exactly 100%. On any validation failure the stored split is
// left untouched. Success appends an immutable audit entry.
func (l *Ledger) Rebalance(ctx context.Context, projectID, requesterID string, newSplit map[string]int64) error {
	if len(newSplit) == 0 {
		return fault.Validationf("split cannot be empty")
	}

	var audit model.SplitAudit
	err := l.registry.WithProject(projectID, func(v *registry.View) error {
		if v.Project.OwnerID != requesterID {
			return fault.Permissionf("only the owner may rebalance project %s", projectID)
		}

		var sum int64
		for identityID, bp := range newSplit {
			if !v.IsCollaborator(identityID) {
				return fault.Validationf("identity %s is not a collaborator of project %s", identityID, projectID)
			}
			if bp < 0 {
				return fault.Validationf("share for %s is negative", identityID)
			}
			sum += bp
		}
		if sum != model.TotalBasisPoints {
			return fault.Validationf("split must sum to exactly 100%%, got %.2f%%", float64(sum)/100)
		}

		// Store entries in the collaborators' join order so snapshots and
		// remainder tie-breaks are deterministic.
		entries := make(model.SplitEntryList, 0, len(newSplit))
		for _, c := range v.Collaborators {
			if bp, ok := newSplit[c.IdentityID]; ok {
				entries = append(entries, model.SplitEntry{IdentityID: c.IdentityID, BasisPoints: bp})
			}
		}

		l.mu.Lock()
		previous := append(model.SplitEntryList(nil), l.splits[projectID]...)
		if len(previous) == 0 {
			previous = model.SplitEntryList{{IdentityID: v.Project.OwnerID, BasisPoints: model.TotalBasisPoints}}
		}
		l.splits[projectID] = entries
		audit = model.SplitAudit{
			ProjectID:     projectID,
			RequesterID:   requesterID,
			PreviousSplit: previous,
			NewSplit:      append(model.SplitEntryList(nil), entries...),
			CreatedAt:     l.now(),
		}
		l.audits[projectID] = append(l.audits[projectID], audit)
		l.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	l.persistRebalance(ctx, projectID, &audit)
	if l.bus != nil {
		l.bus.Publish(model.EventSplitRebalanced, projectID, audit.NewSplit)
	}

	logger.Info("ownership split rebalanced",
		logger.String("projectId", projectID),
		logger.String("requester", requesterID),
		logger.Int("entries", len(audit.NewSplit)))
	return nil
}

// ComputeRevenueShare distributes totalRevenue across the current split.
// Amounts are floored; the rounding remainder goes to the largest share
// holder, ties broken by earliest join order. The returned amounts always
// sum to exactly totalRevenue.
func (l *Ledger) ComputeRevenueShare(ctx context.Context, projectID string, totalRevenue int64) (map[string]int64, error) {
	if totalRevenue < 0 {
		return nil, fault.Validationf("revenue cannot be negative")
	}

	split, err := l.GetSplit(ctx, projectID)
	if err != nil {
		return nil, err
	}

	amounts := make(map[string]int64, len(split))
	var distributed int64
	largest := -1
	for i, entry := range split {
		amount := totalRevenue * entry.BasisPoints / model.TotalBasisPoints
		amounts[entry.IdentityID] = amount
		distributed += amount
		// Entries are kept in join order, so strict comparison picks the
		// earliest-joined among equal shares.
		if largest == -1 || entry.BasisPoints > split[largest].BasisPoints {
			largest = i
		}
	}
	if remainder := totalRevenue - distributed; remainder > 0 && largest >= 0 {
		amounts[split[largest].IdentityID] += remainder
	}
	return amounts, nil
}

// AuditLog returns the project's rebalance history, oldest first.
func (l *Ledger) AuditLog(_ context.Context, projectID string) ([]model.SplitAudit, error) {
	var out []model.SplitAudit
	err := l.registry.WithProject(projectID, func(*registry.View) error {
		l.mu.RLock()
		defer l.mu.RUnlock()
		out = append(out, l.audits[projectID]...)
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) persistRebalance(ctx context.Context, projectID string, audit *model.SplitAudit) {
	if l.repo == nil {
		return
	}
	split := &model.OwnershipSplit{
		ProjectID: projectID,
		Entries:   audit.NewSplit,
		UpdatedAt: audit.CreatedAt,
	}
	if err := l.repo.SaveSplit(ctx, split); err != nil {
		logger.Error("failed to persist split", logger.ErrorField(err))
	}
	if err := l.repo.AppendAudit(ctx, audit); err != nil {
		logger.Error("failed to persist split audit", logger.ErrorField(err))
	}
}
