package service

import (
	"testing"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/db"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// orgFixture 본사 1, 지사 2(B17, B18), 매장 4개(S1~S3: B17/D001, S4: B18/D002)
type orgFixture struct {
	db *gorm.DB

	b17, b18       *model.Branch
	s1, s2, s3, s4 *model.Store

	hq, branch17, store1 scope.Principal

	scopes   ScopeService
	policies PolicyService
	sales    SaleService
	saleRepo repository.SaleRepository
}

func won(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func requireWon(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	require.Truef(t, got.Equal(won(want)), "%s: want %d, got %s", field, want, got.String())
}

func setupOrg(t *testing.T) *orgFixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	f := &orgFixture{db: testDB}

	f.b17 = &model.Branch{Code: "B17", Name: "17지사", IsActive: true}
	f.b18 = &model.Branch{Code: "B18", Name: "18지사", IsActive: true}
	require.NoError(t, testDB.Create(f.b17).Error)
	require.NoError(t, testDB.Create(f.b18).Error)

	newStore := func(branch *model.Branch, code, dealer string) *model.Store {
		s := &model.Store{BranchID: branch.ID, DealerCode: dealer, Code: code, Name: code + "점", IsActive: true}
		require.NoError(t, testDB.Omit("Branch").Create(s).Error)
		return s
	}
	f.s1 = newStore(f.b17, "S1", "D001")
	f.s2 = newStore(f.b17, "S2", "D001")
	f.s3 = newStore(f.b17, "S3", "D001")
	f.s4 = newStore(f.b18, "S4", "D002")

	newUser := func(username string, role model.UserRole, branchID, storeID *uint) *model.User {
		u := &model.User{Username: username, PasswordHash: "x", Name: username, Role: role, BranchID: branchID, StoreID: storeID, IsActive: true}
		require.NoError(t, testDB.Create(u).Error)
		return u
	}
	f.hq = newUser("hq", model.RoleHeadquarters, nil, nil).Principal()
	f.branch17 = newUser("b17", model.RoleBranch, &f.b17.ID, nil).Principal()
	f.store1 = newUser("s1", model.RoleStore, &f.b17.ID, &f.s1.ID).Principal()

	createProfile(t, testDB, "D001", standardParams())
	createProfile(t, testDB, "D002", standardParams())

	userRepo := repository.NewUserRepository(testDB)
	storeRepo := repository.NewStoreRepository(testDB)
	f.saleRepo = repository.NewSaleRepository(testDB)
	f.scopes = NewScopeService(userRepo, storeRepo)
	f.policies = NewPolicyService(testDB, nil)
	f.sales = NewSaleService(f.saleRepo, storeRepo, repository.NewCustomerRepository(testDB), f.scopes, f.policies)
	return f
}

// standardParams 기본 유심비 5000, 번호이동 할인 30000, 세율 10%, 페이백 5%
func standardParams() PolicyParams {
	return PolicyParams{
		DealerName:                "테스트대리점",
		DefaultSimFee:             won(5000),
		DefaultMNPDiscount:        won(30000),
		TaxRate:                   decimal.RequireFromString("0.10"),
		DefaultPaybackRate:        decimal.RequireFromString("0.05"),
		AutoCalculateTax:          true,
		IncludeSimFeeInSettlement: true,
	}
}

func createProfile(t *testing.T, testDB *gorm.DB, code string, params PolicyParams) *model.DealerProfile {
	t.Helper()
	now := time.Now()
	profile := &model.DealerProfile{
		DealerCode:  code,
		Status:      model.DealerStatusActive,
		Revision:    1,
		ActivatedAt: &now,
	}
	require.NoError(t, applyParams(profile, params))
	require.NoError(t, testDB.Create(profile).Error)
	return profile
}

// referenceInput 67000 리베이트 - 유심비 5000 = 정산 62000
func referenceInput(storeID uint, day time.Time) SaleInput {
	return SaleInput{
		StoreID:  storeID,
		SaleDate: day,
		Model:    "SM-S928N",
		Calc: settlement.Input{
			Carrier:        settlement.CarrierSK,
			ActivationType: settlement.ActivationNew,
			BasePrice:      won(50000),
			Verbal1:        won(10000),
			Verbal2:        won(5000),
			GradeAmount:    won(2000),
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
