package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// RecalculationJob 정책 변경 후 과거 개통 내역 일괄 재계산 작업
// LastSaleID 커서는 청크가 끝날 때마다 저장되어 중단된 작업을 이어서 처리할 수 있다
type RecalculationJob struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DealerCode  string     `gorm:"type:varchar(30);not null;index" json:"dealer_code"`
	From        time.Time  `gorm:"column:period_from;type:date;not null" json:"from"`
	To          time.Time  `gorm:"column:period_to;type:date;not null" json:"to"`
	Status      JobStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ChunkSize   int        `gorm:"not null" json:"chunk_size"`
	LastSaleID  uint       `gorm:"not null;default:0" json:"last_sale_id"`
	Processed   int        `gorm:"not null;default:0" json:"processed"`
	Changed     int        `gorm:"not null;default:0" json:"changed"`
	Failed      int        `gorm:"not null;default:0" json:"failed"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	RequestedBy uint       `json:"requested_by"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (RecalculationJob) TableName() string {
	return "recalculation_jobs"
}

func (j *RecalculationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
