package service

import (
	"errors"
	"io"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/metrics"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

// SaleInput 개통 등록/수정 입력. Calc는 원시 금액과 건별 오버라이드.
type SaleInput struct {
	StoreID    uint
	SaleDate   time.Time
	CustomerID *uint
	Model      string
	Memo       string
	Calc       settlement.Input
}

// SaleQuery 목록 조회 조건 (조회 범위는 서비스가 채운다)
type SaleQuery struct {
	StoreID        *uint
	BranchID       *uint
	DealerCode     string
	From           *time.Time
	To             *time.Time
	Carrier        settlement.Carrier
	ActivationType settlement.ActivationType
	Limit          int
	Offset         int
}

type SaleService interface {
	Submit(p scope.Principal, in SaleInput) (*model.Sale, error)
	Get(p scope.Principal, id uint) (*model.Sale, error)
	List(p scope.Principal, q SaleQuery) ([]model.Sale, int64, error)
	Summary(p scope.Principal, q SaleQuery) (repository.SaleTotals, error)
	// UpdateRaw는 원시값을 교체하고 현재 활성 정책으로 다시 계산한다.
	// expectedVersion이 0이면 조회 시점의 version을 기준으로 한다.
	UpdateRaw(p scope.Principal, id uint, in SaleInput, expectedVersion int) (*model.Sale, error)
	// Import는 엑셀 첫 시트의 각 행을 독립적으로 Submit한다
	Import(p scope.Principal, r io.Reader) (*ImportResult, error)
}

type saleService struct {
	saleRepo     repository.SaleRepository
	storeRepo    repository.StoreRepository
	customerRepo repository.CustomerRepository
	scopes       ScopeService
	policies     PolicyService
	now          func() time.Time
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	storeRepo repository.StoreRepository,
	customerRepo repository.CustomerRepository,
	scopes ScopeService,
	policies PolicyService,
) SaleService {
	return &saleService{
		saleRepo:     saleRepo,
		storeRepo:    storeRepo,
		customerRepo: customerRepo,
		scopes:       scopes,
		policies:     policies,
		now:          time.Now,
	}
}

// NormalizeDate 날짜만 남기고 UTC 자정으로 맞춘다
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateSaleInput(in SaleInput) error {
	if in.StoreID == 0 {
		return invalidInput("store_id", "required")
	}
	if in.SaleDate.IsZero() {
		return invalidInput("sale_date", "required")
	}
	return settlement.ValidateInput(in.Calc)
}

func (s *saleService) loadStore(id uint) (*model.Store, error) {
	store, err := s.storeRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return store, nil
}

// checkCustomer 고객은 개통 매장 소속이어야 한다. 매장은 이미 조회 범위 검사를 통과했다.
func (s *saleService) checkCustomer(customerID *uint, storeID uint) error {
	if customerID == nil {
		return nil
	}
	customer, err := s.customerRepo.FindByID(*customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidInput("customer_id", "unknown customer")
		}
		return err
	}
	if customer.StoreID != storeID {
		return invalidInput("customer_id", "customer belongs to another store")
	}
	return nil
}

// calculate 대상 매장의 활성 정책으로 계산해 sale에 원시값/결과를 함께 기록한다
func (s *saleService) calculate(sale *model.Sale, store *model.Store, in SaleInput, origin string) error {
	if !store.IsActive {
		return invalidInput("store_id", "store is inactive")
	}

	profile, policy, err := s.policies.GetActivePolicy(store.DealerCode)
	if err != nil {
		metrics.SettlementCalculations.WithLabelValues(origin, "policy_unavailable").Inc()
		return err
	}

	result, err := settlement.Compute(in.Calc, policy)
	if err != nil {
		metrics.SettlementCalculations.WithLabelValues(origin, "invalid").Inc()
		return err
	}
	metrics.SettlementCalculations.WithLabelValues(origin, "ok").Inc()

	sale.StoreID = store.ID
	sale.BranchID = store.BranchID
	sale.DealerCode = store.DealerCode
	sale.SaleDate = NormalizeDate(in.SaleDate)
	sale.CustomerID = in.CustomerID
	sale.Model = in.Model
	sale.Memo = in.Memo
	sale.SetRawInput(in.Calc)
	sale.ApplyResult(result, profile.Revision, s.now())
	return nil
}

func (s *saleService) Submit(p scope.Principal, in SaleInput) (*model.Sale, error) {
	if err := validateSaleInput(in); err != nil {
		return nil, err
	}
	if err := s.scopes.Authorize(p, in.StoreID); err != nil {
		return nil, err
	}
	store, err := s.loadStore(in.StoreID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(in.CustomerID, store.ID); err != nil {
		return nil, err
	}

	sale := &model.Sale{Version: 1, CreatedBy: p.UserID}
	if err := s.calculate(sale, store, in, "submit"); err != nil {
		return nil, err
	}

	if err := s.saleRepo.Create(sale); err != nil {
		return nil, err
	}

	logger.Info("Sale submitted", map[string]interface{}{
		"sale_id":           sale.ID,
		"store_id":          sale.StoreID,
		"dealer_code":       sale.DealerCode,
		"settlement_amount": sale.SettlementAmount.String(),
	})
	return sale, nil
}

func (s *saleService) Get(p scope.Principal, id uint) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	if err := s.scopes.Authorize(p, sale.StoreID); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *saleService) filter(p scope.Principal, q SaleQuery) (repository.SaleFilter, error) {
	set, err := s.scopes.ResolveNonEmpty(p)
	if err != nil {
		return repository.SaleFilter{}, err
	}
	if q.StoreID != nil {
		if err := s.scopes.Authorize(p, *q.StoreID); err != nil {
			return repository.SaleFilter{}, err
		}
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return repository.SaleFilter{}, invalidInput("to", "must not be before from")
	}

	return repository.SaleFilter{
		StoreIDs:       set.IDs(),
		StoreID:        q.StoreID,
		BranchID:       q.BranchID,
		DealerCode:     q.DealerCode,
		From:           q.From,
		To:             q.To,
		Carrier:        q.Carrier,
		ActivationType: q.ActivationType,
		Limit:          q.Limit,
		Offset:         q.Offset,
	}, nil
}

func (s *saleService) List(p scope.Principal, q SaleQuery) ([]model.Sale, int64, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return nil, 0, err
	}
	return s.saleRepo.FindAll(f)
}

func (s *saleService) Summary(p scope.Principal, q SaleQuery) (repository.SaleTotals, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return repository.SaleTotals{}, err
	}
	return s.saleRepo.Totals(f)
}

func (s *saleService) UpdateRaw(p scope.Principal, id uint, in SaleInput, expectedVersion int) (*model.Sale, error) {
	if err := validateSaleInput(in); err != nil {
		return nil, err
	}

	sale, err := s.Get(p, id)
	if err != nil {
		return nil, err
	}
	if in.StoreID != sale.StoreID {
		if err := s.scopes.Authorize(p, in.StoreID); err != nil {
			return nil, err
		}
	}
	if expectedVersion == 0 {
		expectedVersion = sale.Version
	}

	store, err := s.loadStore(in.StoreID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(in.CustomerID, store.ID); err != nil {
		return nil, err
	}
	if err := s.calculate(sale, store, in, "update"); err != nil {
		return nil, err
	}

	ok, err := s.saleRepo.UpdateCalculated(sale, expectedVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConcurrencyConflict
	}

	logger.Info("Sale updated", map[string]interface{}{
		"sale_id": sale.ID,
		"version": sale.Version,
	})
	return sale, nil
}
