package model

import (
	"encoding/json"
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DealerStatus string // 대리점 정책 상태

const (
	DealerStatusActive    DealerStatus = "active"
	DealerStatusInactive  DealerStatus = "inactive"
	DealerStatusSuspended DealerStatus = "suspended"
)

// DealerProfile 대리점별 정산 정책
type DealerProfile struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	DealerCode string `gorm:"type:varchar(30);uniqueIndex;not null" json:"dealer_code"` // 대리점 코드
	DealerName string `gorm:"not null" json:"dealer_name"`                              // 대리점명

	DefaultSimFee             decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"default_sim_fee"`      // 기본 유심비
	DefaultMNPDiscount        decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"default_mnp_discount"` // 기본 번호이동 할인
	TaxRate                   decimal.Decimal `gorm:"type:numeric(6,4);not null;default:0" json:"tax_rate"`              // 세율 (0.10 = 10%)
	DefaultPaybackRate        decimal.Decimal `gorm:"type:numeric(6,4);not null;default:0" json:"default_payback_rate"`  // 기본 페이백 비율
	AutoCalculateTax          bool            `gorm:"not null" json:"auto_calculate_tax"`                                // 세금 자동 계산
	IncludeSimFeeInSettlement bool            `gorm:"not null" json:"include_sim_fee_in_settlement"`                     // 유심비 정산 차감 여부
	CustomCalculationRules    datatypes.JSON  `json:"custom_calculation_rules"`                                          // 정산 오버라이드 규칙 (kind/params)

	Status        DealerStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Revision      int          `gorm:"not null;default:1" json:"revision"` // 파라미터 변경 시 증가
	ActivatedAt   *time.Time   `json:"activated_at,omitempty"`
	DeactivatedAt *time.Time   `json:"deactivated_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DealerProfile) TableName() string {
	return "dealer_profiles"
}

// Rules decodes the stored override column.
func (p *DealerProfile) Rules() (settlement.RuleSet, error) {
	return settlement.ParseRuleSet(p.CustomCalculationRules)
}

// SetRules encodes rules into the override column.
func (p *DealerProfile) SetRules(rules settlement.RuleSet) error {
	if len(rules) == 0 {
		p.CustomCalculationRules = datatypes.JSON("[]")
		return nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	p.CustomCalculationRules = datatypes.JSON(data)
	return nil
}

// Policy returns the calculator view of this profile.
func (p *DealerProfile) Policy() (settlement.Policy, error) {
	rules, err := p.Rules()
	if err != nil {
		return settlement.Policy{}, err
	}
	return settlement.Policy{
		DealerCode:                p.DealerCode,
		DefaultSimFee:             p.DefaultSimFee,
		DefaultMNPDiscount:        p.DefaultMNPDiscount,
		TaxRate:                   p.TaxRate,
		DefaultPaybackRate:        p.DefaultPaybackRate,
		AutoCalculateTax:          p.AutoCalculateTax,
		IncludeSimFeeInSettlement: p.IncludeSimFeeInSettlement,
		Rules:                     rules,
	}, nil
}
