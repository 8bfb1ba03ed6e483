package model

import (
	"time"

	"gorm.io/gorm"
)

// Branch 지사 (본사 → 지사 → 매장)
type Branch struct {
	ID        uint           `gorm:"primarykey" json:"id"`                // 지사 ID
	Code      string         `gorm:"uniqueIndex;not null" json:"code"`    // 지사 코드 (예: B17)
	Name      string         `gorm:"not null" json:"name"`                // 지사명
	IsActive  bool           `gorm:"default:true;index" json:"is_active"` // 운영 여부
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Branch) TableName() string {
	return "branches"
}

// Store 매장
type Store struct {
	ID          uint           `gorm:"primarykey" json:"id"`            // 매장 ID
	BranchID    uint           `gorm:"not null;index" json:"branch_id"` // 소속 지사
	Branch      *Branch        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"branch,omitempty"`
	DealerCode  string         `gorm:"type:varchar(30);not null;index" json:"dealer_code"` // 정산 정책을 적용받는 대리점 코드
	Code        string         `gorm:"uniqueIndex;not null" json:"code"`                   // 매장 코드
	Name        string         `gorm:"not null" json:"name"`                               // 매장명
	Address     string         `gorm:"type:text" json:"address"`                           // 주소
	PhoneNumber string         `gorm:"type:varchar(30)" json:"phone_number"`               // 연락처
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`                // 운영 여부 (비활성화 = 소프트 폐점)
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Store) TableName() string {
	return "stores"
}

// Customer 매장 고객
type Customer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	StoreID   uint           `gorm:"not null;index" json:"store_id"`
	Name      string         `gorm:"not null" json:"name"`
	Phone     string         `gorm:"type:varchar(30);index" json:"phone"` // 숫자만 (예: 01012345678)
	Memo      string         `gorm:"type:text" json:"memo"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}
