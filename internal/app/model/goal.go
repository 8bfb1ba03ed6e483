package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type GoalTargetType string

const (
	GoalTargetSystem GoalTargetType = "system"
	GoalTargetBranch GoalTargetType = "branch"
	GoalTargetStore  GoalTargetType = "store"
)

func (t GoalTargetType) Valid() bool {
	switch t {
	case GoalTargetSystem, GoalTargetBranch, GoalTargetStore:
		return true
	}
	return false
}

type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

func (p PeriodType) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// Goal 기간별 목표
// 같은 대상/기간에 여러 건이 있을 수 있으며, 가장 최근에 생성된 활성 목표만 달성률 계산에 쓰인다
type Goal struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	TargetType       GoalTargetType  `gorm:"type:varchar(10);not null;index:idx_goals_key,priority:1" json:"target_type"`
	TargetID         *uint           `gorm:"index:idx_goals_key,priority:2" json:"target_id,omitempty"` // system 목표는 nil
	PeriodType       PeriodType      `gorm:"type:varchar(10);not null;index:idx_goals_key,priority:3" json:"period_type"`
	PeriodStart      time.Time       `gorm:"type:date;not null;index:idx_goals_key,priority:4" json:"period_start"`
	PeriodEnd        time.Time       `gorm:"type:date;not null;index:idx_goals_key,priority:5" json:"period_end"`
	SalesTarget      decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"sales_target"`
	ActivationTarget int64           `gorm:"not null;default:0" json:"activation_target"`
	MarginTarget     decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"margin_target"`
	IsActive         bool            `gorm:"not null;default:true;index" json:"is_active"`
	Notes            string          `gorm:"type:text" json:"notes"`
	CreatedBy        uint            `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Goal) TableName() string {
	return "goals"
}
