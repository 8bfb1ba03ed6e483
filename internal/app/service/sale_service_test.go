package service

import (
	"context"
	"testing"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countSales(t *testing.T, f *orgFixture) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Sale{}).Count(&n).Error)
	return n
}

func TestSaleService_SubmitReferenceScenario(t *testing.T) {
	f := setupOrg(t)

	sale, err := f.sales.Submit(f.store1, referenceInput(f.s1.ID, date(2024, 3, 15)))
	require.NoError(t, err)

	stored, err := f.saleRepo.FindByID(sale.ID)
	require.NoError(t, err)

	requireWon(t, 67000, stored.RebateTotal, "rebate_total")
	requireWon(t, 5000, stored.UsimFee, "usim_fee")
	requireWon(t, 62000, stored.SettlementAmount, "settlement_amount")
	requireWon(t, 6200, stored.Tax, "tax")
	requireWon(t, 55800, stored.MarginAfterTax, "margin_after_tax")
	requireWon(t, 3100, stored.Payback, "payback")

	assert.Equal(t, f.b17.ID, stored.BranchID)
	assert.Equal(t, "D001", stored.DealerCode)
	assert.Equal(t, 1, stored.PolicyRevision)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, f.store1.UserID, stored.CreatedBy)
	assert.NotNil(t, stored.CalculatedAt)
}

func TestSaleService_SubmitOutsideScope(t *testing.T) {
	f := setupOrg(t)

	// 17지사 계정은 18지사 매장(S4)에 등록할 수 없다
	_, err := f.sales.Submit(f.branch17, referenceInput(f.s4.ID, date(2024, 3, 15)))
	assert.ErrorIs(t, err, ErrAccessDenied)

	// 매장 계정은 자기 매장만
	_, err = f.sales.Submit(f.store1, referenceInput(f.s2.ID, date(2024, 3, 15)))
	assert.ErrorIs(t, err, ErrAccessDenied)

	assert.Zero(t, countSales(t, f))
}

func TestSaleService_SubmitWithoutActivePolicy(t *testing.T) {
	f := setupOrg(t)

	_, err := f.policies.Suspend(context.Background(), f.hq, "D001")
	require.NoError(t, err)

	_, err = f.sales.Submit(f.store1, referenceInput(f.s1.ID, date(2024, 3, 15)))
	assert.ErrorIs(t, err, ErrPolicyUnavailable)
	assert.Zero(t, countSales(t, f))
}

func TestSaleService_SubmitValidation(t *testing.T) {
	f := setupOrg(t)

	tests := []struct {
		name   string
		mutate func(in *SaleInput)
		field  string
	}{
		{"Unknown carrier", func(in *SaleInput) { in.Calc.Carrier = "XX" }, "carrier"},
		{"Negative amount", func(in *SaleInput) { in.Calc.Verbal1 = won(-100) }, "verbal1"},
		{"Missing store", func(in *SaleInput) { in.StoreID = 0 }, "store_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := referenceInput(f.s1.ID, date(2024, 3, 15))
			tt.mutate(&in)

			_, err := f.sales.Submit(f.hq, in)
			require.ErrorIs(t, err, ErrInvalidInput)
			var inputErr *settlement.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}

	t.Run("Inactive store", func(t *testing.T) {
		require.NoError(t, f.db.Model(f.s2).Update("is_active", false).Error)
		_, err := f.sales.Submit(f.hq, referenceInput(f.s2.ID, date(2024, 3, 15)))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	assert.Zero(t, countSales(t, f))
}

func TestSaleService_ListIsScoped(t *testing.T) {
	f := setupOrg(t)

	for _, storeID := range []uint{f.s1.ID, f.s2.ID, f.s4.ID} {
		_, err := f.sales.Submit(f.hq, referenceInput(storeID, date(2024, 3, 15)))
		require.NoError(t, err)
	}

	sales, total, err := f.sales.List(f.branch17, SaleQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, s := range sales {
		assert.Equal(t, f.b17.ID, s.BranchID)
	}

	_, total, err = f.sales.List(f.hq, SaleQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, total, err = f.sales.List(f.store1, SaleQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// 범위 밖 매장을 명시하면 빈 결과가 아니라 거부
	_, _, err = f.sales.List(f.branch17, SaleQuery{StoreID: &f.s4.ID})
	assert.ErrorIs(t, err, ErrAccessDenied)

	from, to := date(2024, 3, 1), date(2024, 3, 15)
	totals, err := f.sales.Summary(f.branch17, SaleQuery{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Count)
	requireWon(t, 124000, totals.SettlementAmount, "settlement_amount")
	requireWon(t, 111600, totals.MarginAfterTax, "margin_after_tax")

	from = date(2024, 3, 16)
	totals, err = f.sales.Summary(f.branch17, SaleQuery{From: &from})
	require.NoError(t, err)
	assert.Zero(t, totals.Count)
	assert.True(t, totals.SettlementAmount.IsZero())
}

func TestSaleService_GetOutsideScope(t *testing.T) {
	f := setupOrg(t)

	sale, err := f.sales.Submit(f.hq, referenceInput(f.s4.ID, date(2024, 3, 15)))
	require.NoError(t, err)

	_, err = f.sales.Get(f.branch17, sale.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.sales.Get(f.hq, 99999)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestSaleService_UpdateRaw(t *testing.T) {
	f := setupOrg(t)

	sale, err := f.sales.Submit(f.store1, referenceInput(f.s1.ID, date(2024, 3, 15)))
	require.NoError(t, err)

	in := referenceInput(f.s1.ID, date(2024, 3, 15))
	in.Calc.Verbal2 = won(15000)

	updated, err := f.sales.UpdateRaw(f.store1, sale.ID, in, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	requireWon(t, 72000, updated.SettlementAmount, "settlement_amount")

	// 이미 올라간 version으로 다시 시도하면 충돌
	_, err = f.sales.UpdateRaw(f.store1, sale.ID, in, 1)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	stored, err := f.saleRepo.FindByID(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	requireWon(t, 72000, stored.SettlementAmount, "settlement_amount")
}

func TestSaleService_CustomerMustBelongToSaleStore(t *testing.T) {
	f := setupOrg(t)

	own := &model.Customer{StoreID: f.s1.ID, Name: "김고객", Phone: "01011112222"}
	other := &model.Customer{StoreID: f.s4.ID, Name: "이고객", Phone: "01033334444"}
	require.NoError(t, f.db.Create(own).Error)
	require.NoError(t, f.db.Create(other).Error)

	missing := uint(987654)
	tests := []struct {
		name       string
		customerID *uint
	}{
		{"Customer of another branch's store", &other.ID},
		{"Unknown customer", &missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := referenceInput(f.s1.ID, date(2024, 3, 15))
			in.CustomerID = tt.customerID

			_, err := f.sales.Submit(f.store1, in)
			require.ErrorIs(t, err, ErrInvalidInput)
			var inputErr *settlement.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, "customer_id", inputErr.Field)
		})
	}
	assert.Zero(t, countSales(t, f))

	in := referenceInput(f.s1.ID, date(2024, 3, 15))
	in.CustomerID = &own.ID
	sale, err := f.sales.Submit(f.store1, in)
	require.NoError(t, err)
	require.NotNil(t, sale.CustomerID)
	assert.Equal(t, own.ID, *sale.CustomerID)

	// 수정으로 다른 매장 고객을 붙일 수도 없다
	in.CustomerID = &other.ID
	_, err = f.sales.UpdateRaw(f.store1, sale.ID, in, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	stored, err := f.saleRepo.FindByID(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, own.ID, *stored.CustomerID)
	assert.Equal(t, 1, stored.Version)
}
