package repository

import (
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreFilter 매장 목록 조건
// StoreIDs는 조회 범위 교집합이며 nil이 아닌 빈 슬라이스는 결과 없음을 뜻한다
type StoreFilter struct {
	StoreIDs        []uint
	BranchID        *uint
	DealerCode      string
	Search          string
	IncludeInactive bool
}

type StoreRepository interface {
	Create(store *model.Store) error
	// BulkCreate는 이미 있는 매장 코드를 건너뛰고 삽입된 행 수를 반환한다
	BulkCreate(stores []model.Store, batchSize int) (int64, error)
	Update(store *model.Store) error
	FindByID(id uint) (*model.Store, error)
	FindByCode(code string) (*model.Store, error)
	FindAll(filter StoreFilter) ([]model.Store, error)
	UpdateBranch(storeID, branchID uint) error
	Deactivate(id uint) error
	HardDelete(id uint) error
	Hierarchy() (scope.Hierarchy, error)
}

type storeRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) Create(store *model.Store) error {
	logger.Debug("Creating store in database", map[string]interface{}{
		"code":      store.Code,
		"branch_id": store.BranchID,
	})

	if err := r.db.Create(store).Error; err != nil {
		logger.Error("Failed to create store in database", err, map[string]interface{}{
			"code":      store.Code,
			"branch_id": store.BranchID,
		})
		return err
	}

	logger.Debug("Store created in database", map[string]interface{}{
		"store_id": store.ID,
	})
	return nil
}

func (r *storeRepository) BulkCreate(stores []model.Store, batchSize int) (int64, error) {
	if len(stores) == 0 {
		return 0, nil
	}

	result := r.db.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Omit("Branch").
		CreateInBatches(stores, batchSize)
	if result.Error != nil {
		logger.Error("Failed to bulk create stores", result.Error, map[string]interface{}{
			"count": len(stores),
		})
		return 0, result.Error
	}

	logger.Info("Stores bulk created", map[string]interface{}{
		"requested": len(stores),
		"inserted":  result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *storeRepository) Update(store *model.Store) error {
	if err := r.db.Omit("Branch").Save(store).Error; err != nil {
		logger.Error("Failed to update store in database", err, map[string]interface{}{
			"store_id": store.ID,
		})
		return err
	}
	return nil
}

func (r *storeRepository) FindByID(id uint) (*model.Store, error) {
	var store model.Store
	if err := r.db.Preload("Branch").First(&store, id).Error; err != nil {
		logger.Debug("Store not found", map[string]interface{}{
			"store_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) FindByCode(code string) (*model.Store, error) {
	var store model.Store
	if err := r.db.Where("code = ?", code).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) FindAll(filter StoreFilter) ([]model.Store, error) {
	logger.Debug("Finding stores", map[string]interface{}{
		"scope_size": len(filter.StoreIDs),
		"search":     filter.Search,
	})

	query := r.db.Model(&model.Store{}).Preload("Branch")
	if filter.StoreIDs != nil {
		if len(filter.StoreIDs) == 0 {
			return []model.Store{}, nil
		}
		query = query.Where("id IN ?", filter.StoreIDs)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.DealerCode != "" {
		query = query.Where("dealer_code = ?", filter.DealerCode)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", like, like)
	}
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	var stores []model.Store
	if err := query.Order("branch_id ASC, name ASC").Find(&stores).Error; err != nil {
		logger.Error("Failed to find stores", err)
		return nil, err
	}
	return stores, nil
}

// UpdateBranch 매장 소속 지사 변경
func (r *storeRepository) UpdateBranch(storeID, branchID uint) error {
	result := r.db.Model(&model.Store{}).Where("id = ?", storeID).Update("branch_id", branchID)
	if result.Error != nil {
		logger.Error("Failed to reassign store", result.Error, map[string]interface{}{
			"store_id":  storeID,
			"branch_id": branchID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Info("Store reassigned to branch", map[string]interface{}{
		"store_id":  storeID,
		"branch_id": branchID,
	})
	return nil
}

func (r *storeRepository) Deactivate(id uint) error {
	return r.db.Model(&model.Store{}).Where("id = ?", id).Update("is_active", false).Error
}

// HardDelete 매장 행 자체를 제거 (개통 내역/계정이 없을 때만 호출)
func (r *storeRepository) HardDelete(id uint) error {
	if err := r.db.Unscoped().Delete(&model.Store{}, id).Error; err != nil {
		logger.Error("Failed to delete store", err, map[string]interface{}{
			"store_id": id,
		})
		return err
	}
	return nil
}

// Hierarchy 조회 범위 계산용 조직도 스냅샷. 요청마다 새로 읽는다.
func (r *storeRepository) Hierarchy() (scope.Hierarchy, error) {
	var branchIDs []uint
	if err := r.db.Model(&model.Branch{}).Order("id").Pluck("id", &branchIDs).Error; err != nil {
		logger.Error("Failed to load branches for hierarchy", err)
		return scope.Hierarchy{}, err
	}

	var stores []model.Store
	if err := r.db.Select("id", "branch_id").Order("id").Find(&stores).Error; err != nil {
		logger.Error("Failed to load stores for hierarchy", err)
		return scope.Hierarchy{}, err
	}

	nodes := make([]scope.StoreNode, 0, len(stores))
	for _, s := range stores {
		nodes = append(nodes, scope.StoreNode{ID: s.ID, BranchID: s.BranchID})
	}
	return scope.Hierarchy{BranchIDs: branchIDs, Stores: nodes}, nil
}
