package model

import (
	"time"

	"github.com/ikkim/telecom-settlement-backend/internal/settlement"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale 개통 내역
// 파생 필드(rebate_total ~ margin_after_tax)는 정산 계산기만 기록한다
type Sale struct {
	ID             uint                      `gorm:"primarykey" json:"id"`
	StoreID        uint                      `gorm:"not null;index:idx_sales_scope,priority:1" json:"store_id"`
	BranchID       uint                      `gorm:"not null;index:idx_sales_scope,priority:2" json:"branch_id"` // 조회 범위 필터용 비정규화
	SaleDate       time.Time                 `gorm:"type:date;not null;index:idx_sales_scope,priority:3" json:"sale_date"`
	DealerCode     string                    `gorm:"type:varchar(30);not null;index" json:"dealer_code"`
	Carrier        settlement.Carrier        `gorm:"type:varchar(10);not null" json:"carrier"`
	ActivationType settlement.ActivationType `gorm:"type:varchar(20);not null" json:"activation_type"`
	CustomerID     *uint                     `gorm:"index" json:"customer_id,omitempty"`
	Model          string                    `gorm:"type:varchar(100)" json:"model"` // 단말 모델명
	Memo           string                    `gorm:"type:text" json:"memo"`

	// 리베이트 원천 금액
	BasePrice        decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"base_price"`
	Verbal1          decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"verbal1"`
	Verbal2          decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"verbal2"`
	GradeAmount      decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"grade_amount"`
	AdditionalAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"additional_amount"`
	CashActivation   decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"cash_activation"`
	DeductionInput   decimal.Decimal `gorm:"column:deduction_input;type:numeric(15,2);not null;default:0" json:"deduction_input"`
	CashReceived     decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"cash_received"`

	// 건별 오버라이드 (nil = 정책 값 사용)
	UsimFeeOverride     *decimal.Decimal `gorm:"type:numeric(15,2)" json:"usim_fee_override,omitempty"`
	MNPDiscountOverride *decimal.Decimal `gorm:"column:mnp_discount_override;type:numeric(15,2)" json:"mnp_discount_override,omitempty"`
	PaybackRateOverride *decimal.Decimal `gorm:"type:numeric(6,4)" json:"payback_rate_override,omitempty"`
	ManualTax           *decimal.Decimal `gorm:"type:numeric(15,2)" json:"manual_tax,omitempty"`

	// 계산 결과
	RebateTotal      decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"rebate_total"`
	UsimFee          decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"usim_fee"`
	NewMNPDiscount   decimal.Decimal `gorm:"column:new_mnp_discount;type:numeric(15,2);not null;default:0" json:"new_mnp_discount"`
	Deduction        decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"deduction"`
	SettlementAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"settlement_amount"`
	Tax              decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"tax"`
	MarginBeforeTax  decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"margin_before_tax"`
	Payback          decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"payback"`
	MarginAfterTax   decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"margin_after_tax"`

	PolicyRevision int        `gorm:"not null;default:0" json:"policy_revision"` // 계산에 사용된 정책 리비전
	CalculatedAt   *time.Time `json:"calculated_at,omitempty"`
	Version        int        `gorm:"not null;default:1" json:"version"` // 낙관적 잠금
	CreatedBy      uint       `gorm:"index" json:"created_by"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Sale) TableName() string {
	return "sales"
}

// CalculationInput rebuilds the calculator input from the stored raw fields.
func (s *Sale) CalculationInput() settlement.Input {
	return settlement.Input{
		Carrier:          s.Carrier,
		ActivationType:   s.ActivationType,
		BasePrice:        s.BasePrice,
		Verbal1:          s.Verbal1,
		Verbal2:          s.Verbal2,
		GradeAmount:      s.GradeAmount,
		AdditionalAmount: s.AdditionalAmount,
		CashActivation:   s.CashActivation,
		Deduction:        s.DeductionInput,
		CashReceived:     s.CashReceived,
		UsimFee:          s.UsimFeeOverride,
		NewMNPDiscount:   s.MNPDiscountOverride,
		PaybackRate:      s.PaybackRateOverride,
		Tax:              s.ManualTax,
	}
}

// SetRawInput copies raw fields; derived fields are left untouched.
func (s *Sale) SetRawInput(in settlement.Input) {
	s.Carrier = in.Carrier
	s.ActivationType = in.ActivationType
	s.BasePrice = in.BasePrice
	s.Verbal1 = in.Verbal1
	s.Verbal2 = in.Verbal2
	s.GradeAmount = in.GradeAmount
	s.AdditionalAmount = in.AdditionalAmount
	s.CashActivation = in.CashActivation
	s.DeductionInput = in.Deduction
	s.CashReceived = in.CashReceived
	s.UsimFeeOverride = in.UsimFee
	s.MNPDiscountOverride = in.NewMNPDiscount
	s.PaybackRateOverride = in.PaybackRate
	s.ManualTax = in.Tax
}

// ApplyResult writes every calculator-owned field at once.
func (s *Sale) ApplyResult(r settlement.Result, policyRevision int, at time.Time) {
	s.RebateTotal = r.RebateTotal
	s.UsimFee = r.UsimFee
	s.NewMNPDiscount = r.NewMNPDiscount
	s.Deduction = r.Deduction
	s.SettlementAmount = r.SettlementAmount
	s.Tax = r.Tax
	s.MarginBeforeTax = r.MarginBeforeTax
	s.CashReceived = r.CashReceived
	s.Payback = r.Payback
	s.MarginAfterTax = r.MarginAfterTax
	s.PolicyRevision = policyRevision
	s.CalculatedAt = &at
}

// Result returns the stored derived fields.
func (s *Sale) Result() settlement.Result {
	return settlement.Result{
		RebateTotal:      s.RebateTotal,
		UsimFee:          s.UsimFee,
		NewMNPDiscount:   s.NewMNPDiscount,
		Deduction:        s.Deduction,
		SettlementAmount: s.SettlementAmount,
		Tax:              s.Tax,
		MarginBeforeTax:  s.MarginBeforeTax,
		CashReceived:     s.CashReceived,
		Payback:          s.Payback,
		MarginAfterTax:   s.MarginAfterTax,
	}
}
