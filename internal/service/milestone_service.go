package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"govichain/internal/auth"
	"govichain/internal/cache"
	"govichain/internal/errors"
	"govichain/internal/model"
	"govichain/internal/repository"
)

// MilestoneService owns milestone creation, approval, and flagging. It is
// the coupling point between the two state machines: creating the first
// milestone starts the project, and approvals accumulating to the budget
// complete it. Both couplings run inside a single transaction holding a
// row lock on the project, so concurrent submissions cannot jointly pass a
// stale budget or approval-sum check.
type MilestoneService interface {
	Create(ctx context.Context, principal auth.Principal, projectID uint, title, description string, requestedAmount decimal.Decimal) (*model.Milestone, error)
	ListMine(ctx context.Context, principal auth.Principal) ([]model.Milestone, error)
	FilterByStatus(ctx context.Context, status *model.MilestoneStatus) ([]model.Milestone, error)
	ListForProject(ctx context.Context, projectID uint) ([]model.Milestone, error)
	Get(ctx context.Context, id uint) (*model.Milestone, error)
	Approve(ctx context.Context, principal auth.Principal, id uint) (*model.Milestone, error)
	Flag(ctx context.Context, principal auth.Principal, id uint) (*model.Milestone, error)
}

type milestoneService struct {
	milestoneRepo repository.MilestoneRepository
	cache         *cache.Client
}

// NewMilestoneService creates a new milestone service.
func NewMilestoneService(milestoneRepo repository.MilestoneRepository, cache *cache.Client) MilestoneService {
	return &milestoneService{
		milestoneRepo: milestoneRepo,
		cache:         cache,
	}
}

// Create validates the request, enforces the budget cap against the sum of
// the project's existing milestones, and persists the milestone as PENDING.
// The first milestone moves the project from CREATED to IN_PROGRESS in the
// same transaction.
func (s *milestoneService) Create(ctx context.Context, principal auth.Principal, projectID uint, title, description string, requestedAmount decimal.Decimal) (*model.Milestone, error) {
	if err := auth.RequireRole(principal, model.RoleContractor); err != nil {
		return nil, err
	}
	if len(title) < 3 || len(title) > 200 {
		return nil, &errors.InvalidInputError{Field: "title", Constraint: "length must be between 3 and 200"}
	}
	if len(description) > 1000 {
		return nil, &errors.InvalidInputError{Field: "description", Constraint: "length must be at most 1000"}
	}
	if requestedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, &errors.InvalidInputError{Field: "requested_amount", Constraint: "must be greater than 0"}
	}

	milestone := &model.Milestone{
		ProjectID:       projectID,
		Title:           title,
		Description:     description,
		RequestedAmount: requestedAmount,
		Status:          model.MilestoneStatusPending,
		ContractorID:    principal.UserID,
	}

	err := s.milestoneRepo.WithTransaction(ctx, func(ctx context.Context, milestones repository.MilestoneRepository, projects repository.ProjectRepository) error {
		// The project row lock serializes the sum-check-insert sequence
		// against concurrent creations and approvals on the same project.
		project, err := projects.FindByIDForUpdate(ctx, projectID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return &errors.NotFoundError{Entity: "project", ID: projectID}
			}
			return err
		}

		existing, err := milestones.SumRequested(ctx, projectID)
		if err != nil {
			return fmt.Errorf("sum requested: %w", err)
		}
		attemptedTotal := existing.Add(requestedAmount)
		if attemptedTotal.GreaterThan(project.Budget) {
			return &errors.BudgetExceededError{AttemptedTotal: attemptedTotal, Budget: project.Budget}
		}

		if err := milestones.Create(ctx, milestone); err != nil {
			return fmt.Errorf("create milestone: %w", err)
		}

		if project.Status == model.ProjectStatusCreated {
			project.Status = model.ProjectStatusInProgress
			if err := projects.Save(ctx, project); err != nil {
				return fmt.Errorf("start project: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, progressCacheKey(projectID))
	return milestone, nil
}

// ListMine is role-scoped: contractors see their own submissions, auditors
// see the pending review queue, anyone else sees everything.
func (s *milestoneService) ListMine(ctx context.Context, principal auth.Principal) ([]model.Milestone, error) {
	switch principal.Role {
	case model.RoleContractor:
		return s.milestoneRepo.ListByContractor(ctx, principal.UserID)
	case model.RoleAuditor:
		return s.milestoneRepo.ListByStatus(ctx, model.MilestoneStatusPending)
	default:
		return s.milestoneRepo.ListAll(ctx)
	}
}

// FilterByStatus returns all milestones, optionally filtered by status.
func (s *milestoneService) FilterByStatus(ctx context.Context, status *model.MilestoneStatus) ([]model.Milestone, error) {
	if status == nil {
		return s.milestoneRepo.ListAll(ctx)
	}
	if !status.Valid() {
		return nil, &errors.InvalidInputError{Field: "status", Constraint: "unknown milestone status"}
	}
	return s.milestoneRepo.ListByStatus(ctx, *status)
}

// ListForProject returns all milestones of a project.
func (s *milestoneService) ListForProject(ctx context.Context, projectID uint) ([]model.Milestone, error) {
	return s.milestoneRepo.ListByProject(ctx, projectID)
}

// Get retrieves a milestone by ID.
func (s *milestoneService) Get(ctx context.Context, id uint) (*model.Milestone, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &errors.NotFoundError{Entity: "milestone", ID: id}
		}
		return nil, err
	}
	return milestone, nil
}

// Approve marks a PENDING milestone APPROVED, records the auditor and
// timestamp, and completes the project in the same transaction once the sum
// of approved amounts reaches the budget.
func (s *milestoneService) Approve(ctx context.Context, principal auth.Principal, id uint) (*model.Milestone, error) {
	if err := auth.RequireRole(principal, model.RoleAuditor); err != nil {
		return nil, err
	}

	var reviewed *model.Milestone
	err := s.milestoneRepo.WithTransaction(ctx, func(ctx context.Context, milestones repository.MilestoneRepository, projects repository.ProjectRepository) error {
		milestone, project, err := lockForReview(ctx, milestones, projects, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		milestone.Status = model.MilestoneStatusApproved
		milestone.AuditorID = &principal.UserID
		milestone.ApprovedAt = &now
		if err := milestones.Save(ctx, milestone); err != nil {
			return fmt.Errorf("approve milestone: %w", err)
		}

		// Completion derives purely from approved funds reaching the
		// budget, never from milestone counts. The sum includes the row
		// updated above.
		totalApproved, err := milestones.SumRequestedByStatus(ctx, milestone.ProjectID, model.MilestoneStatusApproved)
		if err != nil {
			return fmt.Errorf("sum approved: %w", err)
		}
		if totalApproved.GreaterThanOrEqual(project.Budget) && project.Status != model.ProjectStatusCompleted {
			project.Status = model.ProjectStatusCompleted
			if err := projects.Save(ctx, project); err != nil {
				return fmt.Errorf("complete project: %w", err)
			}
		}

		reviewed = milestone
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, progressCacheKey(reviewed.ProjectID))
	return reviewed, nil
}

// Flag marks a PENDING milestone FLAGGED and records the auditor. Flagging
// has no project side effect.
func (s *milestoneService) Flag(ctx context.Context, principal auth.Principal, id uint) (*model.Milestone, error) {
	if err := auth.RequireRole(principal, model.RoleAuditor); err != nil {
		return nil, err
	}

	var reviewed *model.Milestone
	err := s.milestoneRepo.WithTransaction(ctx, func(ctx context.Context, milestones repository.MilestoneRepository, projects repository.ProjectRepository) error {
		milestone, _, err := lockForReview(ctx, milestones, projects, id)
		if err != nil {
			return err
		}

		milestone.Status = model.MilestoneStatusFlagged
		milestone.AuditorID = &principal.UserID
		if err := milestones.Save(ctx, milestone); err != nil {
			return fmt.Errorf("flag milestone: %w", err)
		}

		reviewed = milestone
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, progressCacheKey(reviewed.ProjectID))
	return reviewed, nil
}

// lockForReview fetches a milestone and its project under row locks,
// verifying the milestone is still PENDING. The project lock is taken first
// to keep lock order consistent with Create and avoid deadlocks; the
// milestone is then re-read under its own lock so two concurrent reviews
// cannot both observe PENDING.
func lockForReview(ctx context.Context, milestones repository.MilestoneRepository, projects repository.ProjectRepository, id uint) (*model.Milestone, *model.Project, error) {
	milestone, err := milestones.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, &errors.NotFoundError{Entity: "milestone", ID: id}
		}
		return nil, nil, err
	}

	project, err := projects.FindByIDForUpdate(ctx, milestone.ProjectID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, &errors.NotFoundError{Entity: "project", ID: milestone.ProjectID}
		}
		return nil, nil, err
	}

	milestone, err = milestones.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if milestone.Status != model.MilestoneStatusPending {
		return nil, nil, &errors.InvalidTransitionError{Current: milestone.Status}
	}
	return milestone, project, nil
}
