package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is wrapped by every validation failure of this package.
var ErrInvalidInput = errors.New("invalid settlement input")

// InputError names the offending field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

// ValidateInput rejects unknown enums and negative monetary fields.
func ValidateInput(in Input) error {
	if !in.Carrier.Valid() {
		return invalid("carrier", fmt.Sprintf("unknown carrier %q", in.Carrier))
	}
	if !in.ActivationType.Valid() {
		return invalid("activation_type", fmt.Sprintf("unknown activation type %q", in.ActivationType))
	}

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"base_price", in.BasePrice},
		{"verbal1", in.Verbal1},
		{"verbal2", in.Verbal2},
		{"grade_amount", in.GradeAmount},
		{"additional_amount", in.AdditionalAmount},
		{"cash_activation", in.CashActivation},
		{"deduction", in.Deduction},
		{"cash_received", in.CashReceived},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return invalid(a.field, "must not be negative")
		}
	}

	optional := []struct {
		field string
		value *decimal.Decimal
	}{
		{"usim_fee", in.UsimFee},
		{"new_mnp_discount", in.NewMNPDiscount},
		{"tax", in.Tax},
	}
	for _, o := range optional {
		if o.value != nil && o.value.IsNegative() {
			return invalid(o.field, "must not be negative")
		}
	}

	if in.PaybackRate != nil && !isFraction(*in.PaybackRate) {
		return invalid("payback_rate", "must be between 0 and 1")
	}
	return nil
}

// ValidatePolicy checks the numeric ranges of a policy and its rules.
func ValidatePolicy(p Policy) error {
	if p.DefaultSimFee.IsNegative() {
		return invalid("default_sim_fee", "must not be negative")
	}
	if p.DefaultMNPDiscount.IsNegative() {
		return invalid("default_mnp_discount", "must not be negative")
	}
	if !isFraction(p.TaxRate) {
		return invalid("tax_rate", "must be between 0 and 1")
	}
	if !isFraction(p.DefaultPaybackRate) {
		return invalid("default_payback_rate", "must be between 0 and 1")
	}
	if err := p.Rules.Validate(); err != nil {
		return invalid("custom_calculation_rules", err.Error())
	}
	return nil
}
