package repository

import (
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleFilter 개통 내역 조회 조건
// StoreIDs(조회 범위)는 필수이며 비어 있으면 결과도 비어 있다
type SaleFilter struct {
	StoreIDs       []uint
	StoreID        *uint
	BranchID       *uint
	DealerCode     string
	From           *time.Time // 포함
	To             *time.Time // 포함
	Carrier        settlement.Carrier
	ActivationType settlement.ActivationType
	Limit          int
	Offset         int
}

// SaleTotals 집계 결과
type SaleTotals struct {
	Count            int64           `json:"count"`
	RebateTotal      decimal.Decimal `json:"rebate_total"`
	SettlementAmount decimal.Decimal `json:"settlement_amount"`
	Tax              decimal.Decimal `json:"tax"`
	Payback          decimal.Decimal `json:"payback"`
	MarginAfterTax   decimal.Decimal `json:"margin_after_tax"`
}

type SaleRepository interface {
	Create(sale *model.Sale) error
	FindByID(id uint) (*model.Sale, error)
	FindAll(filter SaleFilter) ([]model.Sale, int64, error)
	Totals(filter SaleFilter) (SaleTotals, error)
	UpdateCalculated(sale *model.Sale, expectedVersion int) (bool, error)
	FindChunk(dealerCode string, from, to time.Time, afterID uint, limit int) ([]model.Sale, error)
	CountByStore(storeID uint) (int64, error)
	MoveStoreSales(storeID, branchID uint) (int64, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(sale *model.Sale) error {
	logger.Debug("Creating sale in database", map[string]interface{}{
		"store_id":    sale.StoreID,
		"dealer_code": sale.DealerCode,
	})

	if err := r.db.Create(sale).Error; err != nil {
		logger.Error("Failed to create sale in database", err, map[string]interface{}{
			"store_id": sale.StoreID,
		})
		return err
	}

	logger.Debug("Sale created in database", map[string]interface{}{
		"sale_id": sale.ID,
	})
	return nil
}

func (r *saleRepository) FindByID(id uint) (*model.Sale, error) {
	var sale model.Sale
	if err := r.db.First(&sale, id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) scoped(filter SaleFilter) *gorm.DB {
	query := r.db.Model(&model.Sale{}).Where("store_id IN ?", filter.StoreIDs)
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.DealerCode != "" {
		query = query.Where("dealer_code = ?", filter.DealerCode)
	}
	if filter.From != nil {
		query = query.Where("sale_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("sale_date < ?", filter.To.AddDate(0, 0, 1))
	}
	if filter.Carrier != "" {
		query = query.Where("carrier = ?", filter.Carrier)
	}
	if filter.ActivationType != "" {
		query = query.Where("activation_type = ?", filter.ActivationType)
	}
	return query
}

func (r *saleRepository) FindAll(filter SaleFilter) ([]model.Sale, int64, error) {
	if len(filter.StoreIDs) == 0 {
		return []model.Sale{}, 0, nil
	}

	var total int64
	if err := r.scoped(filter).Count(&total).Error; err != nil {
		logger.Error("Failed to count sales", err)
		return nil, 0, err
	}

	query := r.scoped(filter)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var sales []model.Sale
	if err := query.Order("sale_date DESC, id DESC").Find(&sales).Error; err != nil {
		logger.Error("Failed to find sales", err)
		return nil, 0, err
	}

	logger.Debug("Sales found", map[string]interface{}{
		"count": len(sales),
		"total": total,
	})
	return sales, total, nil
}

func (r *saleRepository) Totals(filter SaleFilter) (SaleTotals, error) {
	totals := SaleTotals{}
	if len(filter.StoreIDs) == 0 {
		return totals, nil
	}

	var row struct {
		Count            int64
		RebateTotal      decimal.Decimal
		SettlementAmount decimal.Decimal
		Tax              decimal.Decimal
		Payback          decimal.Decimal
		MarginAfterTax   decimal.Decimal
	}
	err := r.scoped(filter).Select(
		"COUNT(*) AS count, " +
			"COALESCE(SUM(rebate_total), 0) AS rebate_total, " +
			"COALESCE(SUM(settlement_amount), 0) AS settlement_amount, " +
			"COALESCE(SUM(tax), 0) AS tax, " +
			"COALESCE(SUM(payback), 0) AS payback, " +
			"COALESCE(SUM(margin_after_tax), 0) AS margin_after_tax",
	).Scan(&row).Error
	if err != nil {
		logger.Error("Failed to aggregate sales", err)
		return totals, err
	}

	return SaleTotals(row), nil
}

// UpdateCalculated 원시값과 계산 결과를 한 번에 저장한다.
// 저장 시점의 version이 expectedVersion과 다르면 false를 반환한다.
func (r *saleRepository) UpdateCalculated(sale *model.Sale, expectedVersion int) (bool, error) {
	sale.Version = expectedVersion + 1
	result := r.db.Model(&model.Sale{}).
		Where("id = ? AND version = ?", sale.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at", "created_by", "deleted_at").
		Updates(sale)
	if result.Error != nil {
		sale.Version = expectedVersion
		logger.Error("Failed to update sale", result.Error, map[string]interface{}{
			"sale_id": sale.ID,
		})
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		sale.Version = expectedVersion
		logger.Warn("Sale version mismatch", map[string]interface{}{
			"sale_id":          sale.ID,
			"expected_version": expectedVersion,
		})
		return false, nil
	}
	return true, nil
}

// FindChunk 재계산 대상 개통 내역을 ID 커서 기준으로 가져온다
func (r *saleRepository) FindChunk(dealerCode string, from, to time.Time, afterID uint, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.
		Where("dealer_code = ? AND sale_date >= ? AND sale_date < ? AND id > ?",
			dealerCode, from, to.AddDate(0, 0, 1), afterID).
		Order("id ASC").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		logger.Error("Failed to load recalculation chunk", err, map[string]interface{}{
			"dealer_code": dealerCode,
			"after_id":    afterID,
		})
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) CountByStore(storeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Sale{}).Where("store_id = ?", storeID).Count(&count).Error
	return count, err
}

// MoveStoreSales 매장 이동 시 비정규화된 branch_id를 맞춘다.
// 버전을 올려 이동 전 상태로 계산한 재계산 결과가 덮어쓰지 못하게 한다.
func (r *saleRepository) MoveStoreSales(storeID, branchID uint) (int64, error) {
	result := r.db.Model(&model.Sale{}).
		Where("store_id = ?", storeID).
		Updates(map[string]interface{}{
			"branch_id": branchID,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		logger.Error("Failed to move store sales", result.Error, map[string]interface{}{
			"store_id":  storeID,
			"branch_id": branchID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
