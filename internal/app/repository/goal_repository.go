package repository

import (
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

// GoalKey 목표 식별 키. TargetID는 system 목표일 때 nil.
type GoalKey struct {
	TargetType  model.GoalTargetType
	TargetID    *uint
	PeriodType  model.PeriodType
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type GoalFilter struct {
	IncludeSystem bool
	BranchIDs     []uint // 조회 가능한 지사 목표
	StoreIDs      []uint // 조회 가능한 매장 목표
	PeriodType    model.PeriodType
	ActiveOnly    bool
}

type GoalRepository interface {
	Create(goal *model.Goal) error
	FindByID(id uint) (*model.Goal, error)
	FindAll(filter GoalFilter) ([]model.Goal, error)
	FindGoverning(key GoalKey) (*model.Goal, error)
	Deactivate(id uint) error
}

type goalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(goal *model.Goal) error {
	if err := r.db.Create(goal).Error; err != nil {
		logger.Error("Failed to create goal in database", err, map[string]interface{}{
			"target_type": goal.TargetType,
		})
		return err
	}

	logger.Debug("Goal created in database", map[string]interface{}{
		"goal_id":     goal.ID,
		"target_type": goal.TargetType,
	})
	return nil
}

func (r *goalRepository) FindByID(id uint) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.First(&goal, id).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepository) FindAll(filter GoalFilter) ([]model.Goal, error) {
	query := r.db.Model(&model.Goal{})

	// 대상 조건을 OR로 묶는다
	scope := r.db.Where("1 = 0")
	if filter.IncludeSystem {
		scope = scope.Or("target_type = ?", model.GoalTargetSystem)
	}
	if len(filter.BranchIDs) > 0 {
		scope = scope.Or("target_type = ? AND target_id IN ?", model.GoalTargetBranch, filter.BranchIDs)
	}
	if len(filter.StoreIDs) > 0 {
		scope = scope.Or("target_type = ? AND target_id IN ?", model.GoalTargetStore, filter.StoreIDs)
	}
	query = query.Where(scope)

	if filter.PeriodType != "" {
		query = query.Where("period_type = ?", filter.PeriodType)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var goals []model.Goal
	if err := query.Order("period_start DESC, created_at DESC, id DESC").Find(&goals).Error; err != nil {
		logger.Error("Failed to find goals", err)
		return nil, err
	}
	return goals, nil
}

// FindGoverning 같은 키의 활성 목표 중 가장 최근에 생성된 것
func (r *goalRepository) FindGoverning(key GoalKey) (*model.Goal, error) {
	query := r.db.Where("target_type = ? AND period_type = ? AND period_start = ? AND period_end = ? AND is_active = ?",
		key.TargetType, key.PeriodType, key.PeriodStart, key.PeriodEnd, true)
	if key.TargetID == nil {
		query = query.Where("target_id IS NULL")
	} else {
		query = query.Where("target_id = ?", *key.TargetID)
	}

	var goal model.Goal
	if err := query.Order("created_at DESC, id DESC").First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepository) Deactivate(id uint) error {
	result := r.db.Model(&model.Goal{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		logger.Error("Failed to deactivate goal", result.Error, map[string]interface{}{
			"goal_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
