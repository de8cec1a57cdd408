package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"govichain/internal/model"
	"govichain/internal/repository"
)

// fakeStore is an in-memory stand-in for the MySQL-backed repositories.
// WithTransaction holds the store mutex for the whole closure, which models
// the row-level locking the real repositories rely on: two transactions on
// the same store never interleave, so the sum-check-write sequences race
// exactly the way they would against a locked project row.
type fakeStore struct {
	mu sync.Mutex

	projects   map[uint]model.Project
	milestones map[uint]model.Milestone
	users      map[uint]model.User

	nextProjectID   uint
	nextMilestoneID uint
	nextUserID      uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:   make(map[uint]model.Project),
		milestones: make(map[uint]model.Milestone),
		users:      make(map[uint]model.User),
	}
}

func (s *fakeStore) projectRepo() repository.ProjectRepository {
	return &fakeProjectRepo{store: s}
}

func (s *fakeStore) milestoneRepo() repository.MilestoneRepository {
	return &fakeMilestoneRepo{store: s}
}

func (s *fakeStore) userRepo() repository.UserRepository {
	return &fakeUserRepo{store: s}
}

func (s *fakeStore) addProject(p model.Project) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProjectID++
	p.ID = s.nextProjectID
	s.projects[p.ID] = p
	return p
}

func (s *fakeStore) addUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u.ID = s.nextUserID
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) project(id uint) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[id]
}

func (s *fakeStore) milestoneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.milestones)
}

// fakeProjectRepo implements repository.ProjectRepository. When inTx is set
// the store mutex is already held by the enclosing transaction.
type fakeProjectRepo struct {
	store *fakeStore
	inTx  bool
}

func (r *fakeProjectRepo) lock() {
	if !r.inTx {
		r.store.mu.Lock()
	}
}

func (r *fakeProjectRepo) unlock() {
	if !r.inTx {
		r.store.mu.Unlock()
	}
}

func (r *fakeProjectRepo) Create(ctx context.Context, project *model.Project) error {
	r.lock()
	defer r.unlock()
	r.store.nextProjectID++
	project.ID = r.store.nextProjectID
	r.store.projects[project.ID] = *project
	return nil
}

func (r *fakeProjectRepo) Save(ctx context.Context, project *model.Project) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.store.projects[project.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.projects[project.ID] = *project
	return nil
}

func (r *fakeProjectRepo) FindByID(ctx context.Context, id uint) (*model.Project, error) {
	r.lock()
	defer r.unlock()
	p, ok := r.store.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakeProjectRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Project, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProjectRepo) ListAll(ctx context.Context) ([]model.Project, error) {
	r.lock()
	defer r.unlock()
	var out []model.Project
	for _, p := range r.store.projects {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProjectRepo) ListByCreator(ctx context.Context, creatorID uint) ([]model.Project, error) {
	r.lock()
	defer r.unlock()
	var out []model.Project
	for _, p := range r.store.projects {
		if p.CreatorID == creatorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) ListByStatus(ctx context.Context, status model.ProjectStatus) ([]model.Project, error) {
	r.lock()
	defer r.unlock()
	var out []model.Project
	for _, p := range r.store.projects {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) Delete(ctx context.Context, id uint) error {
	r.lock()
	defer r.unlock()
	delete(r.store.projects, id)
	return nil
}

func (r *fakeProjectRepo) CountAll(ctx context.Context) (int64, error) {
	r.lock()
	defer r.unlock()
	return int64(len(r.store.projects)), nil
}

func (r *fakeProjectRepo) CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error) {
	r.lock()
	defer r.unlock()
	counts := make(map[model.ProjectStatus]int64)
	for _, p := range r.store.projects {
		counts[p.Status]++
	}
	return counts, nil
}

func (r *fakeProjectRepo) CountByCreator(ctx context.Context, creatorID uint) (int64, error) {
	r.lock()
	defer r.unlock()
	var count int64
	for _, p := range r.store.projects {
		if p.CreatorID == creatorID {
			count++
		}
	}
	return count, nil
}

func (r *fakeProjectRepo) SumBudget(ctx context.Context) (decimal.Decimal, error) {
	r.lock()
	defer r.unlock()
	sum := decimal.Zero
	for _, p := range r.store.projects {
		sum = sum.Add(p.Budget)
	}
	return sum, nil
}

func (r *fakeProjectRepo) SumBudgetByCreator(ctx context.Context, creatorID uint) (decimal.Decimal, error) {
	r.lock()
	defer r.unlock()
	sum := decimal.Zero
	for _, p := range r.store.projects {
		if p.CreatorID == creatorID {
			sum = sum.Add(p.Budget)
		}
	}
	return sum, nil
}

// fakeMilestoneRepo implements repository.MilestoneRepository.
type fakeMilestoneRepo struct {
	store *fakeStore
	inTx  bool
}

func (r *fakeMilestoneRepo) lock() {
	if !r.inTx {
		r.store.mu.Lock()
	}
}

func (r *fakeMilestoneRepo) unlock() {
	if !r.inTx {
		r.store.mu.Unlock()
	}
}

func (r *fakeMilestoneRepo) Create(ctx context.Context, milestone *model.Milestone) error {
	r.lock()
	defer r.unlock()
	r.store.nextMilestoneID++
	milestone.ID = r.store.nextMilestoneID
	r.store.milestones[milestone.ID] = *milestone
	return nil
}

func (r *fakeMilestoneRepo) Save(ctx context.Context, milestone *model.Milestone) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.store.milestones[milestone.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.milestones[milestone.ID] = *milestone
	return nil
}

func (r *fakeMilestoneRepo) FindByID(ctx context.Context, id uint) (*model.Milestone, error) {
	r.lock()
	defer r.unlock()
	m, ok := r.store.milestones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r *fakeMilestoneRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Milestone, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeMilestoneRepo) ListAll(ctx context.Context) ([]model.Milestone, error) {
	r.lock()
	defer r.unlock()
	var out []model.Milestone
	for _, m := range r.store.milestones {
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMilestoneRepo) ListByContractor(ctx context.Context, contractorID uint) ([]model.Milestone, error) {
	r.lock()
	defer r.unlock()
	var out []model.Milestone
	for _, m := range r.store.milestones {
		if m.ContractorID == contractorID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMilestoneRepo) ListByStatus(ctx context.Context, status model.MilestoneStatus) ([]model.Milestone, error) {
	r.lock()
	defer r.unlock()
	var out []model.Milestone
	for _, m := range r.store.milestones {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMilestoneRepo) ListByProject(ctx context.Context, projectID uint) ([]model.Milestone, error) {
	r.lock()
	defer r.unlock()
	var out []model.Milestone
	for _, m := range r.store.milestones {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMilestoneRepo) DeleteByProject(ctx context.Context, projectID uint) error {
	r.lock()
	defer r.unlock()
	for id, m := range r.store.milestones {
		if m.ProjectID == projectID {
			delete(r.store.milestones, id)
		}
	}
	return nil
}

func (r *fakeMilestoneRepo) CountAll(ctx context.Context) (int64, error) {
	r.lock()
	defer r.unlock()
	return int64(len(r.store.milestones)), nil
}

func (r *fakeMilestoneRepo) CountByStatus(ctx context.Context) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(func(m model.Milestone) bool { return true })
}

func (r *fakeMilestoneRepo) CountByProject(ctx context.Context, projectID uint) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(func(m model.Milestone) bool { return m.ProjectID == projectID })
}

func (r *fakeMilestoneRepo) CountByContractor(ctx context.Context, contractorID uint) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(func(m model.Milestone) bool { return m.ContractorID == contractorID })
}

func (r *fakeMilestoneRepo) CountByAuditor(ctx context.Context, auditorID uint) (map[model.MilestoneStatus]int64, error) {
	return r.groupedCounts(func(m model.Milestone) bool { return m.AuditorID != nil && *m.AuditorID == auditorID })
}

func (r *fakeMilestoneRepo) SumRequested(ctx context.Context, projectID uint) (decimal.Decimal, error) {
	return r.sum(func(m model.Milestone) bool { return m.ProjectID == projectID })
}

func (r *fakeMilestoneRepo) SumRequestedByStatus(ctx context.Context, projectID uint, status model.MilestoneStatus) (decimal.Decimal, error) {
	return r.sum(func(m model.Milestone) bool { return m.ProjectID == projectID && m.Status == status })
}

func (r *fakeMilestoneRepo) SumRequestedTotal(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(func(m model.Milestone) bool { return true })
}

func (r *fakeMilestoneRepo) SumRequestedTotalByStatus(ctx context.Context, status model.MilestoneStatus) (decimal.Decimal, error) {
	return r.sum(func(m model.Milestone) bool { return m.Status == status })
}

func (r *fakeMilestoneRepo) SumRequestedByContractor(ctx context.Context, contractorID uint) (decimal.Decimal, error) {
	return r.sum(func(m model.Milestone) bool { return m.ContractorID == contractorID })
}

func (r *fakeMilestoneRepo) SumRequestedByContractorAndStatus(ctx context.Context, contractorID uint, status model.MilestoneStatus) (decimal.Decimal, error) {
	return r.sum(func(m model.Milestone) bool { return m.ContractorID == contractorID && m.Status == status })
}

func (r *fakeMilestoneRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, milestones repository.MilestoneRepository, projects repository.ProjectRepository) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(ctx, &fakeMilestoneRepo{store: r.store, inTx: true}, &fakeProjectRepo{store: r.store, inTx: true})
}

func (r *fakeMilestoneRepo) groupedCounts(match func(model.Milestone) bool) (map[model.MilestoneStatus]int64, error) {
	r.lock()
	defer r.unlock()
	counts := make(map[model.MilestoneStatus]int64)
	for _, m := range r.store.milestones {
		if match(m) {
			counts[m.Status]++
		}
	}
	return counts, nil
}

func (r *fakeMilestoneRepo) sum(match func(model.Milestone) bool) (decimal.Decimal, error) {
	r.lock()
	defer r.unlock()
	sum := decimal.Zero
	for _, m := range r.store.milestones {
		if match(m) {
			sum = sum.Add(m.RequestedAmount)
		}
	}
	return sum, nil
}

// fakeUserRepo implements repository.UserRepository.
type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextUserID++
	user.ID = r.store.nextUserID
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.User
	for _, u := range r.store.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) CountAll(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.users)), nil
}

func (r *fakeUserRepo) CountByRole(ctx context.Context) (map[model.Role]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	counts := make(map[model.Role]int64)
	for _, u := range r.store.users {
		counts[u.Role]++
	}
	return counts, nil
}
