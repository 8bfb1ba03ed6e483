package model

import (
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/scope"
	"gorm.io/gorm"
)

type UserRole string // 사용자 권한 타입

const (
	RoleHeadquarters UserRole = "headquarters" // 본사
	RoleBranch       UserRole = "branch"       // 지사
	RoleStore        UserRole = "store"        // 매장
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                  // 사용자 ID
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`  // 로그인 아이디
	PasswordHash string         `gorm:"not null" json:"-"`                     // 비밀번호 해시
	Name         string         `gorm:"not null" json:"name"`                  // 이름
	Role         UserRole       `gorm:"type:varchar(20);not null" json:"role"` // 권한
	BranchID     *uint          `gorm:"index" json:"branch_id,omitempty"`      // 지사 (지사/매장 계정)
	StoreID      *uint          `gorm:"index" json:"store_id,omitempty"`       // 매장 (매장 계정)
	IsActive     bool           `gorm:"default:true;index" json:"is_active"`   // 계정 활성 여부
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Principal converts the stored binding into the resolver's input.
func (u *User) Principal() scope.Principal {
	return scope.Principal{
		UserID:   u.ID,
		Role:     scope.Role(u.Role),
		BranchID: u.BranchID,
		StoreID:  u.StoreID,
	}
}
