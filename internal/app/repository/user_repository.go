package repository

import (
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	Update(user *model.User) error
	CountActiveByStore(storeID uint) (int64, error)
	DisableByStore(storeID uint) (int64, error)
	MoveStoreAccounts(storeID, branchID uint) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"username": user.Username,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		logger.Debug("User not found by ID", map[string]interface{}{
			"user_id": id,
			"error":   err.Error(),
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		logger.Debug("User not found by username", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(user *model.User) error {
	if err := r.db.Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

// CountActiveByStore 매장에 묶인 활성 계정 수
func (r *userRepository) CountActiveByStore(storeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Count(&count).Error
	return count, err
}

// DisableByStore 매장 계정 일괄 비활성화
func (r *userRepository) DisableByStore(storeID uint) (int64, error) {
	result := r.db.Model(&model.User{}).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to disable store accounts", result.Error, map[string]interface{}{
			"store_id": storeID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MoveStoreAccounts 매장 계정의 지사를 매장의 새 지사로 맞춘다
func (r *userRepository) MoveStoreAccounts(storeID, branchID uint) (int64, error) {
	result := r.db.Model(&model.User{}).
		Where("store_id = ?", storeID).
		Update("branch_id", branchID)
	if result.Error != nil {
		logger.Error("Failed to move store accounts", result.Error, map[string]interface{}{
			"store_id":  storeID,
			"branch_id": branchID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
