package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"govichain/internal/auth"
	"govichain/internal/cache"
	"govichain/internal/model"
	"govichain/internal/repository"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = 30 * time.Second
)

// StatsService computes the read-only dashboard rollups. Everything here is
// recomputed from current entity state; nothing is maintained.
type StatsService interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
	MyStats(ctx context.Context, principal auth.Principal) (*MyStats, error)
}

// BudgetStats aggregates money across all projects and milestones.
type BudgetStats struct {
	TotalAllocated        decimal.Decimal `json:"total_allocated"`
	TotalRequested        decimal.Decimal `json:"total_requested"`
	TotalApproved         decimal.Decimal `json:"total_approved"`
	UtilizationPercentage decimal.Decimal `json:"utilization_percentage"`
}

// DashboardStats is the global dashboard view.
type DashboardStats struct {
	TotalProjects    int64                           `json:"total_projects"`
	TotalMilestones  int64                           `json:"total_milestones"`
	TotalUsers       int64                           `json:"total_users"`
	ProjectStatus    map[model.ProjectStatus]int64   `json:"project_status"`
	MilestoneStatus  map[model.MilestoneStatus]int64 `json:"milestone_status"`
	Budget           BudgetStats                     `json:"budget"`
	PendingApprovals int64                           `json:"pending_approvals"`
	UsersByRole      map[model.Role]int64            `json:"users_by_role"`
}

// GovernmentStats covers projects created by the principal.
type GovernmentStats struct {
	ProjectsCreated      int64           `json:"projects_created"`
	TotalBudgetAllocated decimal.Decimal `json:"total_budget_allocated"`
}

// ContractorStats covers milestones submitted by the principal.
type ContractorStats struct {
	TotalMilestones     int64           `json:"total_milestones"`
	ApprovedMilestones  int64           `json:"approved_milestones"`
	PendingMilestones   int64           `json:"pending_milestones"`
	TotalRequested      decimal.Decimal `json:"total_requested"`
	TotalApprovedAmount decimal.Decimal `json:"total_approved_amount"`
}

// AuditorStats covers milestones reviewed by the principal.
type AuditorStats struct {
	PendingReviews int64 `json:"pending_reviews"`
	TotalReviewed  int64 `json:"total_reviewed"`
	Approved       int64 `json:"approved"`
	Flagged        int64 `json:"flagged"`
}

// MyStats is the role-scoped view for the calling principal; exactly one of
// the role sections is populated.
type MyStats struct {
	Role       model.Role       `json:"role"`
	Government *GovernmentStats `json:"government,omitempty"`
	Contractor *ContractorStats `json:"contractor,omitempty"`
	Auditor    *AuditorStats    `json:"auditor,omitempty"`
}

type statsService struct {
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	userRepo      repository.UserRepository
	cache         *cache.Client
}

// NewStatsService creates a new stats service.
func NewStatsService(
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	userRepo repository.UserRepository,
	cache *cache.Client,
) StatsService {
	return &statsService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		userRepo:      userRepo,
		cache:         cache,
	}
}

// Dashboard computes global totals and breakdowns, cached briefly.
func (s *statsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if data, _ := s.cache.Get(ctx, dashboardCacheKey); data != nil {
		var cached DashboardStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	totalProjects, err := s.projectRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	totalMilestones, err := s.milestoneRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count milestones: %w", err)
	}
	totalUsers, err := s.userRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	projectStatus, err := s.projectRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("project status breakdown: %w", err)
	}
	milestoneStatus, err := s.milestoneRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("milestone status breakdown: %w", err)
	}
	usersByRole, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("user role breakdown: %w", err)
	}
	totalBudget, err := s.projectRepo.SumBudget(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum budget: %w", err)
	}
	totalRequested, err := s.milestoneRepo.SumRequestedTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum requested: %w", err)
	}
	totalApproved, err := s.milestoneRepo.SumRequestedTotalByStatus(ctx, model.MilestoneStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("sum approved: %w", err)
	}

	utilization := decimal.Zero
	if totalBudget.GreaterThan(decimal.Zero) {
		utilization = totalRequested.Div(totalBudget).Mul(decimal.NewFromInt(100)).Round(2)
	}

	stats := &DashboardStats{
		TotalProjects:   totalProjects,
		TotalMilestones: totalMilestones,
		TotalUsers:      totalUsers,
		ProjectStatus:   projectStatus,
		MilestoneStatus: milestoneStatus,
		Budget: BudgetStats{
			TotalAllocated:        totalBudget,
			TotalRequested:        totalRequested,
			TotalApproved:         totalApproved,
			UtilizationPercentage: utilization,
		},
		PendingApprovals: milestoneStatus[model.MilestoneStatusPending],
		UsersByRole:      usersByRole,
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, dashboardCacheKey, payload, dashboardCacheTTL)
	}
	return stats, nil
}

// MyStats computes the role-scoped statistics for the calling principal.
func (s *statsService) MyStats(ctx context.Context, principal auth.Principal) (*MyStats, error) {
	stats := &MyStats{Role: principal.Role}

	switch principal.Role {
	case model.RoleGovernment:
		projects, err := s.projectRepo.CountByCreator(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("count my projects: %w", err)
		}
		budget, err := s.projectRepo.SumBudgetByCreator(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("sum my budgets: %w", err)
		}
		stats.Government = &GovernmentStats{
			ProjectsCreated:      projects,
			TotalBudgetAllocated: budget,
		}

	case model.RoleContractor:
		counts, err := s.milestoneRepo.CountByContractor(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("count my milestones: %w", err)
		}
		requested, err := s.milestoneRepo.SumRequestedByContractor(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("sum my requested: %w", err)
		}
		approved, err := s.milestoneRepo.SumRequestedByContractorAndStatus(ctx, principal.UserID, model.MilestoneStatusApproved)
		if err != nil {
			return nil, fmt.Errorf("sum my approved: %w", err)
		}
		total := counts[model.MilestoneStatusPending] + counts[model.MilestoneStatusApproved] + counts[model.MilestoneStatusFlagged]
		stats.Contractor = &ContractorStats{
			TotalMilestones:     total,
			ApprovedMilestones:  counts[model.MilestoneStatusApproved],
			PendingMilestones:   counts[model.MilestoneStatusPending],
			TotalRequested:      requested,
			TotalApprovedAmount: approved,
		}

	case model.RoleAuditor:
		pending, err := s.milestoneRepo.CountByStatus(ctx)
		if err != nil {
			return nil, fmt.Errorf("count pending: %w", err)
		}
		reviewed, err := s.milestoneRepo.CountByAuditor(ctx, principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("count reviewed: %w", err)
		}
		total := reviewed[model.MilestoneStatusPending] + reviewed[model.MilestoneStatusApproved] + reviewed[model.MilestoneStatusFlagged]
		stats.Auditor = &AuditorStats{
			PendingReviews: pending[model.MilestoneStatusPending],
			TotalReviewed:  total,
			Approved:       reviewed[model.MilestoneStatusApproved],
			Flagged:        reviewed[model.MilestoneStatusFlagged],
		}
	}

	return stats, nil
}
