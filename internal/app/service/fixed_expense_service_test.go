package service

import (
	"testing"

	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedExpenseService(t *testing.T) {
	f := setupOrg(t)
	expenses := NewFixedExpenseService(
		repository.NewFixedExpenseRepository(f.db),
		repository.NewStoreRepository(f.db),
		f.policies,
		f.scopes,
	)

	rent := FixedExpenseInput{YearMonth: "2024-03", DealerCode: "D001", ExpenseType: "임대료", Amount: won(1500000)}

	t.Run("Headquarters only", func(t *testing.T) {
		_, err := expenses.RecordFixedExpense(f.branch17, rent)
		assert.ErrorIs(t, err, ErrHeadquartersOnly)
	})

	t.Run("Validation", func(t *testing.T) {
		bad := rent
		bad.YearMonth = "2024-3"
		_, err := expenses.RecordFixedExpense(f.hq, bad)
		assert.ErrorIs(t, err, ErrInvalidInput)

		bad = rent
		bad.Amount = won(-1)
		_, err = expenses.RecordFixedExpense(f.hq, bad)
		assert.ErrorIs(t, err, ErrInvalidInput)

		bad = rent
		bad.DealerCode = "D999"
		_, err = expenses.RecordFixedExpense(f.hq, bad)
		assert.ErrorIs(t, err, ErrPolicyNotFound)
	})

	t.Run("Duplicate key conflicts", func(t *testing.T) {
		created, err := expenses.RecordFixedExpense(f.hq, rent)
		require.NoError(t, err)
		assert.Equal(t, f.hq.UserID, created.CreatedBy)

		_, err = expenses.RecordFixedExpense(f.hq, rent)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)

		labor := rent
		labor.ExpenseType = "인건비"
		_, err = expenses.RecordFixedExpense(f.hq, labor)
		require.NoError(t, err)
	})

	t.Run("Visibility follows scope", func(t *testing.T) {
		other := FixedExpenseInput{YearMonth: "2024-03", DealerCode: "D002", ExpenseType: "임대료", Amount: won(900000)}
		_, err := expenses.RecordFixedExpense(f.hq, other)
		require.NoError(t, err)

		all, err := expenses.ListFixedExpenses(f.hq, "2024-03")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		mine, err := expenses.ListFixedExpenses(f.branch17, "2024-03")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		for _, e := range mine {
			assert.Equal(t, "D001", e.DealerCode)
		}

		none, err := expenses.ListFixedExpenses(f.hq, "2024-04")
		require.NoError(t, err)
		assert.Empty(t, none)

		_, err = expenses.ListFixedExpenses(f.hq, "March")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
