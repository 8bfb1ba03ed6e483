package service

import (
	"testing"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoals(f *orgFixture) GoalService {
	return NewGoalService(repository.NewGoalRepository(f.db), f.saleRepo, f.scopes)
}

func branchGoal(f *orgFixture, target int64) GoalInput {
	return GoalInput{
		TargetType:       model.GoalTargetBranch,
		TargetID:         &f.b17.ID,
		PeriodType:       model.PeriodMonthly,
		PeriodStart:      date(2024, 3, 1),
		SalesTarget:      won(target),
		ActivationTarget: 10,
	}
}

func TestGoalService_Achievement(t *testing.T) {
	f := setupOrg(t)
	goals := newGoals(f)

	for _, storeID := range []uint{f.s1.ID, f.s2.ID, f.s4.ID} {
		_, err := f.sales.Submit(f.hq, referenceInput(storeID, date(2024, 3, 15)))
		require.NoError(t, err)
	}
	// 기간 밖
	_, err := f.sales.Submit(f.hq, referenceInput(f.s1.ID, date(2024, 4, 1)))
	require.NoError(t, err)

	query := AchievementQuery{
		TargetType:  model.GoalTargetBranch,
		TargetID:    &f.b17.ID,
		PeriodType:  model.PeriodMonthly,
		PeriodStart: date(2024, 3, 1),
	}

	t.Run("No goal", func(t *testing.T) {
		a, err := goals.Achievement(f.branch17, query)
		require.NoError(t, err)
		assert.False(t, a.HasTarget)
		assert.Nil(t, a.Pct)
		assert.Nil(t, a.GoalID)
		requireWon(t, 124000, a.SalesActual, "sales_actual")
		assert.Equal(t, int64(2), a.ActivationActual)
		assert.Equal(t, date(2024, 3, 31), a.PeriodEnd)
	})

	t.Run("Latest goal governs", func(t *testing.T) {
		_, err := goals.CreateGoal(f.hq, branchGoal(f, 248000))
		require.NoError(t, err)
		latest, err := goals.CreateGoal(f.branch17, branchGoal(f, 160000))
		require.NoError(t, err)

		a, err := goals.Achievement(f.branch17, query)
		require.NoError(t, err)
		require.True(t, a.HasTarget)
		require.NotNil(t, a.GoalID)
		assert.Equal(t, latest.ID, *a.GoalID)
		requireWon(t, 160000, a.SalesTarget, "sales_target")
		// 124000 / 160000 = 77.5%
		require.NotNil(t, a.Pct)
		assert.Equal(t, int64(78), *a.Pct)
	})

	t.Run("Deactivated goal falls back", func(t *testing.T) {
		list, err := goals.ListGoals(f.branch17, model.PeriodMonthly, true)
		require.NoError(t, err)
		require.Len(t, list, 2)

		var newest model.Goal
		for _, g := range list {
			if g.ID > newest.ID {
				newest = g
			}
		}
		require.NoError(t, goals.DeactivateGoal(f.branch17, newest.ID))

		a, err := goals.Achievement(f.branch17, query)
		require.NoError(t, err)
		require.NotNil(t, a.Pct)
		assert.Equal(t, int64(50), *a.Pct)
	})

	t.Run("Zero target means no target", func(t *testing.T) {
		storeQuery := AchievementQuery{
			TargetType:  model.GoalTargetStore,
			TargetID:    &f.s1.ID,
			PeriodType:  model.PeriodMonthly,
			PeriodStart: date(2024, 3, 1),
		}
		in := GoalInput{
			TargetType:       model.GoalTargetStore,
			TargetID:         &f.s1.ID,
			PeriodType:       model.PeriodMonthly,
			PeriodStart:      date(2024, 3, 1),
			ActivationTarget: 5,
		}
		_, err := goals.CreateGoal(f.branch17, in)
		require.NoError(t, err)

		a, err := goals.Achievement(f.store1, storeQuery)
		require.NoError(t, err)
		assert.False(t, a.HasTarget)
		assert.Nil(t, a.Pct)
		assert.NotNil(t, a.GoalID)
		requireWon(t, 62000, a.SalesActual, "sales_actual")
	})
}

func TestGoalService_CreatePermissions(t *testing.T) {
	f := setupOrg(t)
	goals := newGoals(f)

	_, err := goals.CreateGoal(f.store1, branchGoal(f, 100000))
	assert.ErrorIs(t, err, ErrAccessDenied)

	system := GoalInput{
		TargetType:  model.GoalTargetSystem,
		PeriodType:  model.PeriodQuarterly,
		PeriodStart: date(2024, 1, 1),
		SalesTarget: won(1000000),
	}
	_, err = goals.CreateGoal(f.branch17, system)
	assert.ErrorIs(t, err, ErrHeadquartersOnly)

	created, err := goals.CreateGoal(f.hq, system)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 31), created.PeriodEnd)

	// 다른 지사 목표
	other := branchGoal(f, 100000)
	other.TargetID = &f.b18.ID
	_, err = goals.CreateGoal(f.branch17, other)
	assert.ErrorIs(t, err, ErrAccessDenied)

	bad := branchGoal(f, -1)
	_, err = goals.CreateGoal(f.hq, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = branchGoal(f, 100000)
	bad.PeriodType = "weekly"
	_, err = goals.CreateGoal(f.hq, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPeriodEnd(t *testing.T) {
	tests := []struct {
		name       string
		periodType model.PeriodType
		start      string
		want       string
	}{
		{"Monthly February leap year", model.PeriodMonthly, "2024-02-01", "2024-02-29"},
		{"Quarterly", model.PeriodQuarterly, "2024-04-01", "2024-06-30"},
		{"Yearly", model.PeriodYearly, "2024-01-01", "2024-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := mustDate(t, tt.start)
			assert.Equal(t, mustDate(t, tt.want), PeriodEnd(tt.periodType, start))
		})
	}
}
