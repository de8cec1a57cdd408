package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"govichain/internal/model"
)

// ProjectRepository defines project persistence operations.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	Save(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id uint) (*model.Project, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Project, error)
	ListAll(ctx context.Context) ([]model.Project, error)
	ListByCreator(ctx context.Context, creatorID uint) ([]model.Project, error)
	ListByStatus(ctx context.Context, status model.ProjectStatus) ([]model.Project, error)
	Delete(ctx context.Context, id uint) error
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error)
	CountByCreator(ctx context.Context, creatorID uint) (int64, error)
	SumBudget(ctx context.Context) (decimal.Decimal, error)
	SumBudgetByCreator(ctx context.Context, creatorID uint) (decimal.Decimal, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Create creates a new project.
func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Save updates an existing project.
func (r *projectRepository) Save(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// FindByID finds a project by ID.
func (r *projectRepository) FindByID(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDForUpdate finds a project by ID with a row-level lock. Budget and
// completion checks hold this lock for the duration of the transaction.
func (r *projectRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListAll lists all projects.
func (r *projectRepository) ListAll(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListByCreator lists projects created by the given user.
func (r *projectRepository) ListByCreator(ctx context.Context, creatorID uint) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListByStatus lists projects with the given status.
func (r *projectRepository) ListByStatus(ctx context.Context, status model.ProjectStatus) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("status = ?", status).Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Delete removes a project row.
func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Project{}, id).Error
}

// CountAll counts all projects.
func (r *projectRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts projects grouped by status.
func (r *projectRepository) CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error) {
	var rows []struct {
		Status model.ProjectStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Project{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.ProjectStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountByCreator counts projects created by the given user.
func (r *projectRepository) CountByCreator(ctx context.Context, creatorID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("creator_id = ?", creatorID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumBudget sums the budget of all projects.
func (r *projectRepository) SumBudget(ctx context.Context) (decimal.Decimal, error) {
	return r.sumBudget(ctx, r.db.WithContext(ctx).Model(&model.Project{}))
}

// SumBudgetByCreator sums the budget of projects created by the given user.
func (r *projectRepository) SumBudgetByCreator(ctx context.Context, creatorID uint) (decimal.Decimal, error) {
	return r.sumBudget(ctx, r.db.WithContext(ctx).Model(&model.Project{}).Where("creator_id = ?", creatorID))
}

func (r *projectRepository) sumBudget(ctx context.Context, query *gorm.DB) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := query.Select("COALESCE(SUM(budget), 0)").Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
