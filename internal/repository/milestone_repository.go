package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"govichain/internal/model"
)

// MilestoneRepository defines milestone persistence operations.
//
// WithTransaction is the coupling point between the two entity state
// machines: milestone creation and approval both read-modify-write the
// owning project inside one transaction, so the closure receives
// transaction-bound repositories for both entities.
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *model.Milestone) error
	Save(ctx context.Context, milestone *model.Milestone) error
	FindByID(ctx context.Context, id uint) (*model.Milestone, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Milestone, error)
	ListAll(ctx context.Context) ([]model.Milestone, error)
	ListByContractor(ctx context.Context, contractorID uint) ([]model.Milestone, error)
	ListByStatus(ctx context.Context, status model.MilestoneStatus) ([]model.Milestone, error)
	ListByProject(ctx context.Context, projectID uint) ([]model.Milestone, error)
	DeleteByProject(ctx context.Context, projectID uint) error
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[model.MilestoneStatus]int64, error)
	CountByProject(ctx context.Context, projectID uint) (map[model.MilestoneStatus]int64, error)
	CountByContractor(ctx context.Context, contractorID uint) (map[model.MilestoneStatus]int64, error)
	CountByAuditor(ctx context.Context, auditorID uint) (map[model.MilestoneStatus]int64, error)
	SumRequested(ctx context.Context, projectID uint) (decimal.Decimal, error)
	SumRequestedByStatus(ctx context.Context, projectID uint, status model.MilestoneStatus) (decimal.Decimal, error)
	SumRequestedTotal(ctx context.Context) (decimal.Decimal, error)
	SumRequestedTotalByStatus(ctx context.Context, status model.MilestoneStatus) (decimal.Decimal, error)
	SumRequestedByContractor(ctx context.Context, contractorID uint) (decimal.Decimal, error)
	SumRequestedByContractorAndStatus(ctx context.Context, contractorID uint, status model.MilestoneStatus) (decimal.Decimal, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, milestones MilestoneRepository, projects ProjectRepository) error) error
}

type milestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new milestone repository.
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

// Create creates a new milestone.
func (r *milestoneRepository) Create(ctx context.Context, milestone *model.Milestone) error {
	return r.db.WithContext(ctx).Create(milestone).Error
}

// Save updates an existing milestone.
func (r *milestoneRepository) Save(ctx context.Context, milestone *model.Milestone) error {
	return r.db.WithContext(ctx).Save(milestone).Error
}

// FindByID finds a milestone by ID.
func (r *milestoneRepository) FindByID(ctx context.Context, id uint) (*model.Milestone, error) {
	var milestone model.Milestone
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&milestone).Error; err != nil {
		return nil, err
	}
	return &milestone, nil
}

// FindByIDForUpdate finds a milestone by ID with a row-level lock, so two
// concurrent reviews cannot both see it as PENDING.
func (r *milestoneRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Milestone, error) {
	var milestone model.Milestone
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&milestone).Error; err != nil {
		return nil, err
	}
	return &milestone, nil
}

// ListAll lists all milestones.
func (r *milestoneRepository) ListAll(ctx context.Context) ([]model.Milestone, error) {
	var milestones []model.Milestone
	if err := r.db.WithContext(ctx).Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// ListByContractor lists milestones submitted by the given contractor.
func (r *milestoneRepository) ListByContractor(ctx context.Context, contractorID uint) ([]model.Milestone, error) {
	var milestones []model.Milestone
	if err := r.db.WithContext(ctx).Where("contractor_id = ?", contractorID).Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// ListByStatus lists milestones with the given status.
func (r *milestoneRepository) ListByStatus(ctx context.Context, status model.MilestoneStatus) ([]model.Milestone, error) {
	var milestones []model.Milestone
	if err := r.db.WithContext(ctx).Where("status = ?", status).Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// ListByProject lists milestones belonging to the given project.
func (r *milestoneRepository) ListByProject(ctx context.Context, projectID uint) ([]model.Milestone, error) {
	var milestones []model.Milestone
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// DeleteByProject removes all milestones of a project. Used by the project
// cascade delete within its transaction.
func (r *milestoneRepository) DeleteByProject(ctx context.Context, projectID uint) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&model.Milestone{}).Error
}

// CountAll counts all milestones.
func (r *milestoneRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Milestone{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts all milestones grouped by status.
func (r *milestoneRepository) CountByStatus(ctx context.Context) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(r.db.WithContext(ctx).Model(&model.Milestone{}))
}

// CountByProject counts a project's milestones grouped by status.
func (r *milestoneRepository) CountByProject(ctx context.Context, projectID uint) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(r.db.WithContext(ctx).Model(&model.Milestone{}).Where("project_id = ?", projectID))
}

// CountByContractor counts a contractor's milestones grouped by status.
func (r *milestoneRepository) CountByContractor(ctx context.Context, contractorID uint) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(r.db.WithContext(ctx).Model(&model.Milestone{}).Where("contractor_id = ?", contractorID))
}

// CountByAuditor counts milestones reviewed by the given auditor grouped by status.
func (r *milestoneRepository) CountByAuditor(ctx context.Context, auditorID uint) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(r.db.WithContext(ctx).Model(&model.Milestone{}).Where("auditor_id = ?", auditorID))
}

// SumRequested sums requested amounts over all milestones of a project.
func (r *milestoneRepository) SumRequested(ctx context.Context, projectID uint) (decimal.Decimal, error) {
	return r.sumRequested(r.db.WithContext(ctx).Model(&model.Milestone{}).Where("project_id = ?", projectID))
}

// SumRequestedByStatus sums requested amounts over a project's milestones
// with the given status.
func (r *milestoneRepository) SumRequestedByStatus(ctx context.Context, projectID uint, status model.MilestoneStatus) (decimal.Decimal, error) {
	return r.sumRequested(r.db.WithContext(ctx).Model(&model.Milestone{}).
		Where("project_id = ? AND status = ?", projectID, status))
}

// SumRequestedTotal sums requested amounts over all milestones.
func (r *milestoneRepository) SumRequestedTotal(ctx context.Context) (decimal.Decimal, error) {
	return r.sumRequested(r.db.WithContext(ctx).Model(&model.Milestone{}))
}

// SumRequestedTotalByStatus sums requested amounts over all milestones with
// the given status.
func (r *milestoneRepository) SumRequestedTotalByStatus(ctx context.Context, status model.MilestoneStatus) (decimal.Decimal, error) {
	return r.sumRequested(r.db.WithContext(ctx).Model(&model.Milestone{}).Where("status = ?", status))
}

// SumRequestedByContractor sums requested amounts over a contractor's milestones.
func (r *milestoneRepository) SumRequestedByContractor(ctx context.Context, contractorID uint) (decimal.Decimal, error) {
	return r.sumRequested(r.db.WithContext(ctx).Model(&model.Milestone{}).Where("contractor_id = ?", contractorID))
}

// SumRequestedByContractorAndStatus sums requested amounts over a
// contractor's milestones with the given status.
func (r *milestoneRepository) SumRequestedByContractorAndStatus(ctx context.Context, contractorID uint, status model.MilestoneStatus) (decimal.Decimal, error) {
	return r.sumRequested(r.db.WithContext(ctx).Model(&model.Milestone{}).
		Where("contractor_id = ? AND status = ?", contractorID, status))
}

// WithTransaction executes a function within a database transaction. Both
// repositories handed to fn are bound to the same transaction.
func (r *milestoneRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, milestones MilestoneRepository, projects ProjectRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &milestoneRepository{db: tx}, &projectRepository{db: tx})
	})
}

func (r *milestoneRepository) groupedCounts(query *gorm.DB) (map[model.MilestoneStatus]int64, error) {
	var rows []struct {
		Status model.MilestoneStatus
		Count  int64
	}
	if err := query.Select("status, COUNT(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.MilestoneStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *milestoneRepository) sumRequested(query *gorm.DB) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := query.Select("COALESCE(SUM(requested_amount), 0)").Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
