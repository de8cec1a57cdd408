package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govichain/internal/auth"
	"govichain/internal/errors"
	"govichain/internal/model"
)

var (
	government = auth.Principal{UserID: 1, Role: model.RoleGovernment}
	contractor = auth.Principal{UserID: 2, Role: model.RoleContractor}
	auditor    = auth.Principal{UserID: 3, Role: model.RoleAuditor}
)

func newProject(store *fakeStore, budget int64) model.Project {
	return store.addProject(model.Project{
		Name:      "Bridge Repair",
		Budget:    decimal.NewFromInt(budget),
		Status:    model.ProjectStatusCreated,
		CreatorID: government.UserID,
	})
}

func TestMilestoneService_Create_RoleGating(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)

	for _, p := range []auth.Principal{government, auditor} {
		_, err := svc.Create(context.Background(), p, project.ID, "Foundation work", "", decimal.NewFromInt(1000))
		var denied *errors.AccessDeniedError
		assert.ErrorAs(t, err, &denied)
	}
	assert.Equal(t, 0, store.milestoneCount())
}

func TestMilestoneService_Create_Validation(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)

	tests := []struct {
		name   string
		title  string
		amount decimal.Decimal
		field  string
	}{
		{"title too short", "ab", decimal.NewFromInt(100), "title"},
		{"zero amount", "Foundation work", decimal.Zero, "requested_amount"},
		{"negative amount", "Foundation work", decimal.NewFromInt(-50), "requested_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), contractor, project.ID, tt.title, "", tt.amount)
			var invalid *errors.InvalidInputError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
	assert.Equal(t, 0, store.milestoneCount())
}

func TestMilestoneService_Create_ProjectNotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewMilestoneService(store.milestoneRepo(), nil)

	_, err := svc.Create(context.Background(), contractor, 42, "Foundation work", "", decimal.NewFromInt(100))
	var notFound *errors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "project", notFound.Entity)
}

func TestMilestoneService_Create_FirstMilestoneStartsProject(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)

	milestone, err := svc.Create(context.Background(), contractor, project.ID, "Foundation work", "", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, model.MilestoneStatusPending, milestone.Status)
	assert.Equal(t, contractor.UserID, milestone.ContractorID)
	assert.Equal(t, model.ProjectStatusInProgress, store.project(project.ID).Status)

	// A later milestone does not change the status again.
	_, err = svc.Create(context.Background(), contractor, project.ID, "Roofing", "", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusInProgress, store.project(project.ID).Status)
}

func TestMilestoneService_Create_BudgetCap(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, contractor, project.ID, "Phase one", "", decimal.NewFromInt(6000))
	require.NoError(t, err)

	// 6000 + 5000 would exceed the 10000 budget.
	_, err = svc.Create(ctx, contractor, project.ID, "Phase two", "", decimal.NewFromInt(5000))
	var exceeded *errors.BudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.True(t, exceeded.AttemptedTotal.Equal(decimal.NewFromInt(11000)))
	assert.True(t, exceeded.Budget.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 1, store.milestoneCount())

	// Exactly reaching the budget is allowed.
	_, err = svc.Create(ctx, contractor, project.ID, "Phase three", "", decimal.NewFromInt(4000))
	require.NoError(t, err)
	assert.Equal(t, 2, store.milestoneCount())
}

func TestMilestoneService_ListMine_RoleScoped(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)
	ctx := context.Background()

	m1, err := svc.Create(ctx, contractor, project.ID, "Phase one", "", decimal.NewFromInt(1000))
	require.NoError(t, err)
	other := auth.Principal{UserID: 9, Role: model.RoleContractor}
	_, err = svc.Create(ctx, other, project.ID, "Phase two", "", decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, auditor, m1.ID)
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, contractor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, contractor.UserID, mine[0].ContractorID)

	// Auditors see the pending queue.
	queue, err := svc.ListMine(ctx, auditor)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
	assert.Equal(t, model.MilestoneStatusPending, queue[0].Status)

	// Government sees everything.
	all, err := svc.ListMine(ctx, government)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMilestoneService_Approve(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)
	ctx := context.Background()

	milestone, err := svc.Create(ctx, contractor, project.ID, "Phase one", "", decimal.NewFromInt(4000))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, contractor, milestone.ID)
	var denied *errors.AccessDeniedError
	assert.ErrorAs(t, err, &denied)

	approved, err := svc.Approve(ctx, auditor, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MilestoneStatusApproved, approved.Status)
	require.NotNil(t, approved.AuditorID)
	assert.Equal(t, auditor.UserID, *approved.AuditorID)
	assert.NotNil(t, approved.ApprovedAt)

	// 4000 < 10000, so the project is not complete.
	assert.Equal(t, model.ProjectStatusInProgress, store.project(project.ID).Status)

	// A milestone is reviewed exactly once.
	_, err = svc.Approve(ctx, auditor, milestone.ID)
	var transition *errors.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.MilestoneStatusApproved, transition.Current)
}

func TestMilestoneService_Approve_CompletesProjectAtBudget(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)
	ctx := context.Background()

	m1, err := svc.Create(ctx, contractor, project.ID, "Phase one", "", decimal.NewFromInt(6000))
	require.NoError(t, err)
	m2, err := svc.Create(ctx, contractor, project.ID, "Phase two", "", decimal.NewFromInt(4000))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, auditor, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusInProgress, store.project(project.ID).Status)

	_, err = svc.Approve(ctx, auditor, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCompleted, store.project(project.ID).Status)
}

func TestMilestoneService_Flag(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)
	ctx := context.Background()

	milestone, err := svc.Create(ctx, contractor, project.ID, "Phase one", "", decimal.NewFromInt(10000))
	require.NoError(t, err)

	flagged, err := svc.Flag(ctx, auditor, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MilestoneStatusFlagged, flagged.Status)
	require.NotNil(t, flagged.AuditorID)
	assert.Equal(t, auditor.UserID, *flagged.AuditorID)
	assert.Nil(t, flagged.ApprovedAt)

	// Flagging has no project side effect even at full budget.
	assert.Equal(t, model.ProjectStatusInProgress, store.project(project.ID).Status)

	// Terminal: neither approve nor flag may follow.
	_, err = svc.Approve(ctx, auditor, milestone.ID)
	var transition *errors.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
	_, err = svc.Flag(ctx, auditor, milestone.ID)
	assert.ErrorAs(t, err, &transition)
}

// TestMilestoneService_DisbursementScenario walks the full lifecycle: a
// 10000 project, a rejected over-budget submission, and completion when
// approved funds reach the budget.
func TestMilestoneService_DisbursementScenario(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, contractor, project.ID, "Milestone A", "", decimal.NewFromInt(6000))
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusInProgress, store.project(project.ID).Status)

	_, err = svc.Create(ctx, contractor, project.ID, "Milestone B", "", decimal.NewFromInt(5000))
	var exceeded *errors.BudgetExceededError
	require.ErrorAs(t, err, &exceeded)

	c, err := svc.Create(ctx, contractor, project.ID, "Milestone C", "", decimal.NewFromInt(4000))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, auditor, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusInProgress, store.project(project.ID).Status)

	_, err = svc.Approve(ctx, auditor, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCompleted, store.project(project.ID).Status)

	_, err = svc.Flag(ctx, auditor, a.ID)
	var transition *errors.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.MilestoneStatusApproved, transition.Current)

	// Completion is never left again.
	assert.Equal(t, model.ProjectStatusCompleted, store.project(project.ID).Status)
}

// TestMilestoneService_ConcurrentCreate races two submissions that each fit
// the budget alone but not together. The transaction serializes the
// sum-check-insert sequence, so exactly one must win.
func TestMilestoneService_ConcurrentCreate(t *testing.T) {
	store := newFakeStore()
	project := newProject(store, 10000)
	svc := NewMilestoneService(store.milestoneRepo(), nil)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), contractor, project.ID, "Racing milestone", "", decimal.NewFromInt(6000))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var exceeded *errors.BudgetExceededError
		require.ErrorAs(t, err, &exceeded)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 1, store.milestoneCount())
}
