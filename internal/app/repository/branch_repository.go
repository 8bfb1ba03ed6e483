package repository

import (
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

type BranchRepository interface {
	Create(branch *model.Branch) error
	FindByID(id uint) (*model.Branch, error)
	FindByCode(code string) (*model.Branch, error)
	FindAll(ids []uint) ([]model.Branch, error)
}

type branchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Create(branch *model.Branch) error {
	if err := r.db.Create(branch).Error; err != nil {
		logger.Error("Failed to create branch in database", err, map[string]interface{}{
			"code": branch.Code,
		})
		return err
	}

	logger.Debug("Branch created in database", map[string]interface{}{
		"branch_id": branch.ID,
		"code":      branch.Code,
	})
	return nil
}

func (r *branchRepository) FindByID(id uint) (*model.Branch, error) {
	var branch model.Branch
	if err := r.db.First(&branch, id).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) FindByCode(code string) (*model.Branch, error) {
	var branch model.Branch
	if err := r.db.Where("code = ?", code).First(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

// FindAll ids가 nil이면 전체, 아니면 해당 지사만
func (r *branchRepository) FindAll(ids []uint) ([]model.Branch, error) {
	query := r.db.Model(&model.Branch{})
	if ids != nil {
		if len(ids) == 0 {
			return []model.Branch{}, nil
		}
		query = query.Where("id IN ?", ids)
	}

	var branches []model.Branch
	if err := query.Order("code ASC").Find(&branches).Error; err != nil {
		logger.Error("Failed to find branches", err)
		return nil, err
	}
	return branches, nil
}
