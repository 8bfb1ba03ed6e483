package repository

import (
	"github.com/google/uuid"
	"github.com/ikkim/telecom-settlement-backend/internal/app/model"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	"gorm.io/gorm"
)

type RecalculationJobRepository interface {
	Create(job *model.RecalculationJob) error
	FindByID(id uuid.UUID) (*model.RecalculationJob, error)
	Save(job *model.RecalculationJob) error
	FindResumable() ([]model.RecalculationJob, error)
}

type recalculationJobRepository struct {
	db *gorm.DB
}

func NewRecalculationJobRepository(db *gorm.DB) RecalculationJobRepository {
	return &recalculationJobRepository{db: db}
}

func (r *recalculationJobRepository) Create(job *model.RecalculationJob) error {
	if err := r.db.Create(job).Error; err != nil {
		logger.Error("Failed to create recalculation job", err, map[string]interface{}{
			"dealer_code": job.DealerCode,
		})
		return err
	}
	return nil
}

func (r *recalculationJobRepository) FindByID(id uuid.UUID) (*model.RecalculationJob, error) {
	var job model.RecalculationJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Save 커서와 카운터를 저장한다 (청크 단위 체크포인트)
func (r *recalculationJobRepository) Save(job *model.RecalculationJob) error {
	if err := r.db.Save(job).Error; err != nil {
		logger.Error("Failed to save recalculation job", err, map[string]interface{}{
			"job_id":       job.ID.String(),
			"last_sale_id": job.LastSaleID,
		})
		return err
	}
	return nil
}

// FindResumable 대기 중이거나 중단된 작업
func (r *recalculationJobRepository) FindResumable() ([]model.RecalculationJob, error) {
	var jobs []model.RecalculationJob
	err := r.db.Where("status IN ?", []model.JobStatus{model.JobStatusPending, model.JobStatusRunning}).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}
