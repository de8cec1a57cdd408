package service

import (
	"context"
	"encoding/json"
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

const progressCacheTTL = time.Minute

func progressCacheKey(projectID uint) string {
	return fmt.Sprintf("project:%d:progress", projectID)
}

// ProjectService owns project creation, status transitions, and
// budget-utilization queries. IN_PROGRESS and COMPLETED are normally entered
// only as side effects of milestone operations; SetStatus is the explicit
// government override.
type ProjectService interface {
	Create(ctx context.Context, principal auth.Principal, name, description string, budget decimal.Decimal) (*model.Project, error)
	ListAll(ctx context.Context) ([]model.Project, error)
	ListMine(ctx context.Context, principal auth.Principal) ([]model.Project, error)
	FilterByStatus(ctx context.Context, status *model.ProjectStatus) ([]model.Project, error)
	Get(ctx context.Context, id uint) (*model.Project, error)
	SetStatus(ctx context.Context, principal auth.Principal, id uint, status model.ProjectStatus) (*model.Project, error)
	Delete(ctx context.Context, principal auth.Principal, id uint) error
	Progress(ctx context.Context, id uint) (*ProjectProgress, error)
}

// MilestoneCounts breaks a project's milestones down by status.
type MilestoneCounts struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Pending  int64 `json:"pending"`
	Flagged  int64 `json:"flagged"`
}

// FundTotals aggregates the monetary side of a project's milestones.
type FundTotals struct {
	TotalRequested  decimal.Decimal `json:"total_requested"`
	ApprovedAmount  decimal.Decimal `json:"approved_amount"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
}

// ProgressRatios are percentages rounded to two decimal places, zero when
// the denominator is zero.
type ProgressRatios struct {
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
	BudgetUtilization    decimal.Decimal `json:"budget_utilization"`
}

// ProjectProgress is the derived read-side view of a single project.
type ProjectProgress struct {
	ProjectID     uint                `json:"project_id"`
	ProjectName   string              `json:"project_name"`
	ProjectBudget decimal.Decimal     `json:"project_budget"`
	ProjectStatus model.ProjectStatus `json:"project_status"`
	Milestones    MilestoneCounts     `json:"milestones"`
	Funds         FundTotals          `json:"funds"`
	Progress      ProgressRatios      `json:"progress"`
}

type projectService struct {
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	cache         *cache.Client
}

// NewProjectService creates a new project service.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	cache *cache.Client,
) ProjectService {
	return &projectService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		cache:         cache,
	}
}

// Create validates inputs and persists a new project with status CREATED.
func (s *projectService) Create(ctx context.Context, principal auth.Principal, name, description string, budget decimal.Decimal) (*model.Project, error) {
	if err := auth.RequireRole(principal, model.RoleGovernment); err != nil {
		return nil, err
	}
	if len(name) < 3 || len(name) > 200 {
		return nil, &errors.InvalidInputError{Field: "name", Constraint: "length must be between 3 and 200"}
	}
	if len(description) > 1000 {
		return nil, &errors.InvalidInputError{Field: "description", Constraint: "length must be at most 1000"}
	}
	if budget.LessThanOrEqual(decimal.Zero) {
		return nil, &errors.InvalidInputError{Field: "budget", Constraint: "must be greater than 0"}
	}

	project := &model.Project{
		Name:        name,
		Description: description,
		Budget:      budget,
		Status:      model.ProjectStatusCreated,
		CreatorID:   principal.UserID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// ListAll returns all projects. Any authenticated principal may call it.
func (s *projectService) ListAll(ctx context.Context) ([]model.Project, error) {
	return s.projectRepo.ListAll(ctx)
}

// ListMine returns projects created by the calling government officer.
func (s *projectService) ListMine(ctx context.Context, principal auth.Principal) ([]model.Project, error) {
	if err := auth.RequireRole(principal, model.RoleGovernment); err != nil {
		return nil, err
	}
	return s.projectRepo.ListByCreator(ctx, principal.UserID)
}

// FilterByStatus returns all projects, optionally filtered by status.
func (s *projectService) FilterByStatus(ctx context.Context, status *model.ProjectStatus) ([]model.Project, error) {
	if status == nil {
		return s.projectRepo.ListAll(ctx)
	}
	if !status.Valid() {
		return nil, &errors.InvalidInputError{Field: "status", Constraint: "unknown project status"}
	}
	return s.projectRepo.ListByStatus(ctx, *status)
}

// Get retrieves a project by ID.
func (s *projectService) Get(ctx context.Context, id uint) (*model.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &errors.NotFoundError{Entity: "project", ID: id}
		}
		return nil, err
	}
	return project, nil
}

// SetStatus overwrites the project status unconditionally. Unlike the
// milestone machine there is no transition table here: any status is
// reachable from any status. This is the manual government override.
func (s *projectService) SetStatus(ctx context.Context, principal auth.Principal, id uint, status model.ProjectStatus) (*model.Project, error) {
	if err := auth.RequireRole(principal, model.RoleGovernment); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, &errors.InvalidInputError{Field: "status", Constraint: "unknown project status"}
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Status = status
	if err := s.projectRepo.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("update project status: %w", err)
	}

	_ = s.cache.Delete(ctx, progressCacheKey(id))
	return project, nil
}

// Delete removes a project and all of its milestones in one transaction.
func (s *projectService) Delete(ctx context.Context, principal auth.Principal, id uint) error {
	if err := auth.RequireRole(principal, model.RoleGovernment); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	err := s.milestoneRepo.WithTransaction(ctx, func(ctx context.Context, milestones repository.MilestoneRepository, projects repository.ProjectRepository) error {
		if err := milestones.DeleteByProject(ctx, id); err != nil {
			return err
		}
		return projects.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	_ = s.cache.Delete(ctx, progressCacheKey(id))
	return nil
}

// Progress recomputes the derived per-project rollup, cached briefly.
func (s *projectService) Progress(ctx context.Context, id uint) (*ProjectProgress, error) {
	if data, _ := s.cache.Get(ctx, progressCacheKey(id)); data != nil {
		var cached ProjectProgress
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	counts, err := s.milestoneRepo.CountByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count milestones: %w", err)
	}
	totalRequested, err := s.milestoneRepo.SumRequested(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sum requested: %w", err)
	}
	approvedAmount, err := s.milestoneRepo.SumRequestedByStatus(ctx, id, model.MilestoneStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("sum approved: %w", err)
	}

	approved := counts[model.MilestoneStatusApproved]
	pending := counts[model.MilestoneStatusPending]
	flagged := counts[model.MilestoneStatusFlagged]
	total := approved + pending + flagged

	completion := decimal.Zero
	if total > 0 {
		completion = decimal.NewFromInt(approved).
			Div(decimal.NewFromInt(total)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	utilization := decimal.Zero
	if project.Budget.GreaterThan(decimal.Zero) {
		utilization = totalRequested.
			Div(project.Budget).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	progress := &ProjectProgress{
		ProjectID:     id,
		ProjectName:   project.Name,
		ProjectBudget: project.Budget,
		ProjectStatus: project.Status,
		Milestones: MilestoneCounts{
			Total:    total,
			Approved: approved,
			Pending:  pending,
			Flagged:  flagged,
		},
		Funds: FundTotals{
			TotalRequested:  totalRequested,
			ApprovedAmount:  approvedAmount,
			RemainingBudget: project.Budget.Sub(totalRequested),
		},
		Progress: ProgressRatios{
			CompletionPercentage: completion,
			BudgetUtilization:    utilization,
		},
	}

	if payload, err := json.Marshal(progress); err == nil {
		_ = s.cache.Set(ctx, progressCacheKey(id), payload, progressCacheTTL)
	}
	return progress, nil
}
