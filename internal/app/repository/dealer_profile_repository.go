package repository

import (
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DealerProfileRepository interface {
	Create(profile *model.DealerProfile) error
	Save(profile *model.DealerProfile) error
	FindByCode(code string) (*model.DealerProfile, error)
	FindByCodeForUpdate(code string) (*model.DealerProfile, error)
	FindActiveByCode(code string) (*model.DealerProfile, error)
	FindAll(status model.DealerStatus) ([]model.DealerProfile, error)
}

type dealerProfileRepository struct {
	db *gorm.DB
}

// NewDealerProfileRepository db는 트랜잭션(tx)일 수도 있다
func NewDealerProfileRepository(db *gorm.DB) DealerProfileRepository {
	return &dealerProfileRepository{db: db}
}

func (r *dealerProfileRepository) Create(profile *model.DealerProfile) error {
	logger.Debug("Creating dealer profile in database", map[string]interface{}{
		"dealer_code": profile.DealerCode,
	})

	if err := r.db.Create(profile).Error; err != nil {
		logger.Error("Failed to create dealer profile", err, map[string]interface{}{
			"dealer_code": profile.DealerCode,
		})
		return err
	}
	return nil
}

func (r *dealerProfileRepository) Save(profile *model.DealerProfile) error {
	if err := r.db.Save(profile).Error; err != nil {
		logger.Error("Failed to save dealer profile", err, map[string]interface{}{
			"dealer_code": profile.DealerCode,
		})
		return err
	}

	logger.Debug("Dealer profile saved", map[string]interface{}{
		"dealer_code": profile.DealerCode,
		"status":      profile.Status,
		"revision":    profile.Revision,
	})
	return nil
}

func (r *dealerProfileRepository) FindByCode(code string) (*model.DealerProfile, error) {
	var profile model.DealerProfile
	if err := r.db.Where("dealer_code = ?", code).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByCodeForUpdate 행 잠금 (SELECT ... FOR UPDATE). 트랜잭션 안에서만 의미가 있다.
func (r *dealerProfileRepository) FindByCodeForUpdate(code string) (*model.DealerProfile, error) {
	var profile model.DealerProfile
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("dealer_code = ?", code).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *dealerProfileRepository) FindActiveByCode(code string) (*model.DealerProfile, error) {
	var profile model.DealerProfile
	err := r.db.Where("dealer_code = ? AND status = ?", code, model.DealerStatusActive).
		First(&profile).Error
	if err != nil {
		logger.Debug("Active dealer profile not found", map[string]interface{}{
			"dealer_code": code,
			"error":       err.Error(),
		})
		return nil, err
	}
	return &profile, nil
}

func (r *dealerProfileRepository) FindAll(status model.DealerStatus) ([]model.DealerProfile, error) {
	query := r.db.Model(&model.DealerProfile{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var profiles []model.DealerProfile
	if err := query.Order("dealer_code ASC").Find(&profiles).Error; err != nil {
		logger.Error("Failed to find dealer profiles", err)
		return nil, err
	}
	return profiles, nil
}
