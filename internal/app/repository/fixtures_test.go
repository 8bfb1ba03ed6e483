package repository

import (
	"testing"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/db"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupOrgDB 지사 B17(S1, S2), B18(S3)
func setupOrgDB(t *testing.T) (*gorm.DB, []model.Branch, []model.Store) {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	branches := []model.Branch{
		{Code: "B17", Name: "17지사", IsActive: true},
		{Code: "B18", Name: "18지사", IsActive: true},
	}
	require.NoError(t, testDB.Create(&branches).Error)

	stores := []model.Store{
		{BranchID: branches[0].ID, DealerCode: "D001", Code: "S1", Name: "가점", IsActive: true},
		{BranchID: branches[0].ID, DealerCode: "D001", Code: "S2", Name: "나점", IsActive: true},
		{BranchID: branches[1].ID, DealerCode: "D002", Code: "S3", Name: "다점", IsActive: true},
	}
	require.NoError(t, testDB.Omit("Branch").Create(&stores).Error)
	return testDB, branches, stores
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

// newSale 계산 결과를 직접 채운 개통 내역
func newSale(store model.Store, saleDate time.Time, settlementAmount int64) *model.Sale {
	amount := decimal.NewFromInt(settlementAmount)
	now := time.Now()
	return &model.Sale{
		StoreID:          store.ID,
		BranchID:         store.BranchID,
		DealerCode:       store.DealerCode,
		SaleDate:         saleDate,
		Carrier:          settlement.CarrierSK,
		ActivationType:   settlement.ActivationNew,
		BasePrice:        amount,
		RebateTotal:      amount,
		SettlementAmount: amount,
		Tax:              amount.Div(decimal.NewFromInt(10)),
		MarginBeforeTax:  amount,
		MarginAfterTax:   amount.Sub(amount.Div(decimal.NewFromInt(10))),
		PolicyRevision:   1,
		CalculatedAt:     &now,
		Version:          1,
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
