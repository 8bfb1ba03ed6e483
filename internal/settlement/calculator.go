// Package settlement computes the derived financial fields of a telecom
// activation from its raw commission inputs and the dealer policy in effect.
//
// Compute is a pure function: it reads no clock, no global state and performs
// no I/O, so the same input and policy always produce the same Result.
package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Carrier 통신사
type Carrier string

const (
	CarrierSK   Carrier = "SK"
	CarrierKT   Carrier = "KT"
	CarrierLG   Carrier = "LG"
	CarrierMVNO Carrier = "MVNO"
)

func (c Carrier) Valid() bool {
	switch c {
	case CarrierSK, CarrierKT, CarrierLG, CarrierMVNO:
		return true
	}
	return false
}

// ActivationType 개통 유형
type ActivationType string

const (
	ActivationNew          ActivationType = "new"
	ActivationDeviceChange ActivationType = "device_change"
	ActivationPortIn       ActivationType = "port_in"
)

func (a ActivationType) Valid() bool {
	switch a {
	case ActivationNew, ActivationDeviceChange, ActivationPortIn:
		return true
	}
	return false
}

// ParseCarrier normalizes user input such as "sk" or "skt".
func ParseCarrier(s string) (Carrier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SK", "SKT":
		return CarrierSK, nil
	case "KT":
		return CarrierKT, nil
	case "LG", "LGU", "LGU+":
		return CarrierLG, nil
	case "MVNO", "알뜰폰":
		return CarrierMVNO, nil
	}
	return "", invalid("carrier", "unknown carrier \""+s+"\"")
}

// ParseActivationType accepts the stored form and the common spellings of the sales sheets.
func ParseActivationType(s string) (ActivationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new", "신규":
		return ActivationNew, nil
	case "device_change", "device-change", "change-device", "기변", "기기변경":
		return ActivationDeviceChange, nil
	case "port_in", "port-in", "mnp", "번호이동":
		return ActivationPortIn, nil
	}
	return "", invalid("activation_type", "unknown activation type \""+s+"\"")
}

// Input holds the raw, client-supplied fields of a sale.
// Pointer fields are optional per-sale overrides of policy values.
type Input struct {
	Carrier        Carrier
	ActivationType ActivationType

	BasePrice        decimal.Decimal
	Verbal1          decimal.Decimal
	Verbal2          decimal.Decimal
	GradeAmount      decimal.Decimal
	AdditionalAmount decimal.Decimal

	CashActivation decimal.Decimal
	Deduction      decimal.Decimal
	CashReceived   decimal.Decimal

	UsimFee        *decimal.Decimal
	NewMNPDiscount *decimal.Decimal
	PaybackRate    *decimal.Decimal
	// Tax is only read when the policy does not calculate tax itself.
	Tax *decimal.Decimal
}

// Policy is the subset of a dealer profile the calculator needs.
type Policy struct {
	DealerCode                string
	DefaultSimFee             decimal.Decimal
	DefaultMNPDiscount        decimal.Decimal
	TaxRate                   decimal.Decimal
	DefaultPaybackRate        decimal.Decimal
	AutoCalculateTax          bool
	IncludeSimFeeInSettlement bool
	Rules                     RuleSet
}

// Result holds every field the calculator owns.
type Result struct {
	RebateTotal      decimal.Decimal `json:"rebate_total"`
	UsimFee          decimal.Decimal `json:"usim_fee"`
	NewMNPDiscount   decimal.Decimal `json:"new_mnp_discount"`
	Deduction        decimal.Decimal `json:"deduction"`
	SettlementAmount decimal.Decimal `json:"settlement_amount"`
	Tax              decimal.Decimal `json:"tax"`
	MarginBeforeTax  decimal.Decimal `json:"margin_before_tax"`
	CashReceived     decimal.Decimal `json:"cash_received"`
	Payback          decimal.Decimal `json:"payback"`
	MarginAfterTax   decimal.Decimal `json:"margin_after_tax"`
}

// Equal compares two results field by field.
func (r Result) Equal(o Result) bool {
	return r.RebateTotal.Equal(o.RebateTotal) &&
		r.UsimFee.Equal(o.UsimFee) &&
		r.NewMNPDiscount.Equal(o.NewMNPDiscount) &&
		r.Deduction.Equal(o.Deduction) &&
		r.SettlementAmount.Equal(o.SettlementAmount) &&
		r.Tax.Equal(o.Tax) &&
		r.MarginBeforeTax.Equal(o.MarginBeforeTax) &&
		r.CashReceived.Equal(o.CashReceived) &&
		r.Payback.Equal(o.Payback) &&
		r.MarginAfterTax.Equal(o.MarginAfterTax)
}

var defaultRounding = Rounding{Mode: RoundHalfUp, Places: 0}

// Compute runs aggregate → deduct → tax split → reconcile.
// It returns an error wrapping ErrInvalidInput when the input or policy is malformed.
func Compute(in Input, p Policy) (Result, error) {
	if err := ValidateInput(in); err != nil {
		return Result{}, err
	}
	if err := ValidatePolicy(p); err != nil {
		return Result{}, err
	}

	rounding := p.rounding()

	rebate := in.BasePrice.
		Add(in.Verbal1).
		Add(in.Verbal2).
		Add(in.GradeAmount).
		Add(in.AdditionalAmount)

	usimFee := p.simFeeFor(in)
	if in.UsimFee != nil {
		usimFee = *in.UsimFee
	}

	mnpDiscount := decimal.Zero
	if p.mnpApplies(in.ActivationType) {
		mnpDiscount = p.DefaultMNPDiscount
		if in.NewMNPDiscount != nil {
			mnpDiscount = *in.NewMNPDiscount
		}
	}

	deduction := in.Deduction.Add(p.fixedDeductionFor(in))

	settlementAmount := rebate.
		Sub(mnpDiscount).
		Sub(in.CashActivation).
		Sub(deduction)
	if p.IncludeSimFeeInSettlement {
		settlementAmount = settlementAmount.Sub(usimFee)
	}

	var tax decimal.Decimal
	if p.AutoCalculateTax {
		tax = rounding.apply(settlementAmount.Mul(p.TaxRate))
	} else if in.Tax != nil {
		tax = *in.Tax
	}
	marginBeforeTax := settlementAmount
	marginAfterTax := marginBeforeTax.Sub(tax)

	paybackRate := p.paybackRateFor(in)
	if in.PaybackRate != nil {
		paybackRate = *in.PaybackRate
	}
	payback := rounding.apply(settlementAmount.Mul(paybackRate))

	return Result{
		RebateTotal:      rebate,
		UsimFee:          usimFee,
		NewMNPDiscount:   mnpDiscount,
		Deduction:        deduction,
		SettlementAmount: settlementAmount,
		Tax:              tax,
		MarginBeforeTax:  marginBeforeTax,
		CashReceived:     in.CashReceived,
		Payback:          payback,
		MarginAfterTax:   marginAfterTax,
	}, nil
}

func (p Policy) rounding() Rounding {
	r := defaultRounding
	for _, rule := range p.Rules {
		if v, ok := rule.(Rounding); ok {
			r = v
		}
	}
	return r
}

func (p Policy) mnpApplies(a ActivationType) bool {
	scope := MNPPortInOnly
	for _, rule := range p.Rules {
		if v, ok := rule.(MNPDiscountScope); ok {
			scope = v.Scope
		}
	}
	if scope == MNPAllActivations {
		return true
	}
	return a == ActivationPortIn
}

func (p Policy) simFeeFor(in Input) decimal.Decimal {
	fee := p.DefaultSimFee
	best := -1
	for _, rule := range p.Rules {
		v, ok := rule.(SimFeeOverride)
		if !ok {
			continue
		}
		if score, match := specificity(v.Carrier, "", in); match && score >= best {
			best = score
			fee = v.Amount
		}
	}
	return fee
}

func (p Policy) paybackRateFor(in Input) decimal.Decimal {
	rate := p.DefaultPaybackRate
	best := -1
	for _, rule := range p.Rules {
		v, ok := rule.(PaybackRateOverride)
		if !ok {
			continue
		}
		if score, match := specificity(v.Carrier, v.ActivationType, in); match && score >= best {
			best = score
			rate = v.Rate
		}
	}
	return rate
}

func (p Policy) fixedDeductionFor(in Input) decimal.Decimal {
	total := decimal.Zero
	for _, rule := range p.Rules {
		v, ok := rule.(FixedDeduction)
		if !ok {
			continue
		}
		if _, match := specificity(v.Carrier, v.ActivationType, in); match {
			total = total.Add(v.Amount)
		}
	}
	return total
}
