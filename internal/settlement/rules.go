package settlement

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RuleKind 정책 오버라이드 규칙 종류
type RuleKind string

const (
	KindSimFeeOverride      RuleKind = "sim_fee_override"
	KindMNPDiscountScope    RuleKind = "mnp_discount_scope"
	KindPaybackRateOverride RuleKind = "payback_rate_override"
	KindFixedDeduction      RuleKind = "fixed_deduction"
	KindRounding            RuleKind = "rounding"
)

// Rule is one typed override of a dealer policy default.
// Implementations: SimFeeOverride, MNPDiscountScope, PaybackRateOverride,
// FixedDeduction, Rounding.
type Rule interface {
	Kind() RuleKind
	Validate() error
}

// SimFeeOverride replaces the dealer's default SIM fee, optionally for one carrier.
type SimFeeOverride struct {
	Carrier Carrier         `json:"carrier,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// MNPScope MNP 할인 적용 범위
type MNPScope string

const (
	MNPPortInOnly     MNPScope = "port_in_only"
	MNPAllActivations MNPScope = "all_activations"
)

// MNPDiscountScope decides which activation types receive the MNP discount.
type MNPDiscountScope struct {
	Scope MNPScope `json:"scope"`
}

// PaybackRateOverride replaces the default payback rate for matching sales.
type PaybackRateOverride struct {
	Carrier        Carrier         `json:"carrier,omitempty"`
	ActivationType ActivationType  `json:"activation_type,omitempty"`
	Rate           decimal.Decimal `json:"rate"`
}

// FixedDeduction adds a flat amount to the sale's deduction for matching sales.
type FixedDeduction struct {
	Carrier        Carrier         `json:"carrier,omitempty"`
	ActivationType ActivationType  `json:"activation_type,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Label          string          `json:"label,omitempty"`
}

// RoundingMode 세금/페이백 반올림 방식
type RoundingMode string

const (
	RoundHalfUp RoundingMode = "half_up"
	RoundDown   RoundingMode = "down"
	RoundUp     RoundingMode = "up"
)

// Rounding controls how tax and payback are rounded.
type Rounding struct {
	Mode   RoundingMode `json:"mode"`
	Places int32        `json:"places"`
}

func (SimFeeOverride) Kind() RuleKind      { return KindSimFeeOverride }
func (MNPDiscountScope) Kind() RuleKind    { return KindMNPDiscountScope }
func (PaybackRateOverride) Kind() RuleKind { return KindPaybackRateOverride }
func (FixedDeduction) Kind() RuleKind      { return KindFixedDeduction }
func (Rounding) Kind() RuleKind            { return KindRounding }

func (r SimFeeOverride) Validate() error {
	if err := validateCarrierFilter(r.Carrier); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("sim_fee_override: amount must not be negative")
	}
	return nil
}

func (r MNPDiscountScope) Validate() error {
	switch r.Scope {
	case MNPPortInOnly, MNPAllActivations:
		return nil
	}
	return fmt.Errorf("mnp_discount_scope: unknown scope %q", r.Scope)
}

func (r PaybackRateOverride) Validate() error {
	if err := validateCarrierFilter(r.Carrier); err != nil {
		return err
	}
	if err := validateActivationFilter(r.ActivationType); err != nil {
		return err
	}
	if !isFraction(r.Rate) {
		return fmt.Errorf("payback_rate_override: rate must be between 0 and 1")
	}
	return nil
}

func (r FixedDeduction) Validate() error {
	if err := validateCarrierFilter(r.Carrier); err != nil {
		return err
	}
	if err := validateActivationFilter(r.ActivationType); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("fixed_deduction: amount must not be negative")
	}
	return nil
}

func (r Rounding) Validate() error {
	switch r.Mode {
	case RoundHalfUp, RoundDown, RoundUp:
	default:
		return fmt.Errorf("rounding: unknown mode %q", r.Mode)
	}
	if r.Places < 0 || r.Places > 4 {
		return fmt.Errorf("rounding: places must be between 0 and 4")
	}
	return nil
}

func (r Rounding) apply(d decimal.Decimal) decimal.Decimal {
	switch r.Mode {
	case RoundDown:
		return d.RoundDown(r.Places)
	case RoundUp:
		return d.RoundUp(r.Places)
	default:
		return d.Round(r.Places)
	}
}

func validateCarrierFilter(c Carrier) error {
	if c == "" || c.Valid() {
		return nil
	}
	return fmt.Errorf("unknown carrier %q", c)
}

func validateActivationFilter(a ActivationType) error {
	if a == "" || a.Valid() {
		return nil
	}
	return fmt.Errorf("unknown activation type %q", a)
}

func isFraction(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(1))
}

// RuleSet is the ordered list of overrides attached to a dealer policy.
// It marshals as [{"kind": "...", "params": {...}}, ...].
type RuleSet []Rule

type ruleEnvelope struct {
	Kind   RuleKind        `json:"kind"`
	Params json.RawMessage `json:"params"`
}

func (rs RuleSet) MarshalJSON() ([]byte, error) {
	envelopes := make([]ruleEnvelope, 0, len(rs))
	for _, r := range rs {
		params, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, ruleEnvelope{Kind: r.Kind(), Params: params})
	}
	return json.Marshal(envelopes)
}

func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var envelopes []ruleEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return fmt.Errorf("custom calculation rules: %w", err)
	}

	out := make(RuleSet, 0, len(envelopes))
	for i, env := range envelopes {
		rule, err := decodeRule(env)
		if err != nil {
			return fmt.Errorf("custom calculation rules[%d]: %w", i, err)
		}
		out = append(out, rule)
	}
	*rs = out
	return nil
}

func decodeRule(env ruleEnvelope) (Rule, error) {
	var rule Rule
	switch env.Kind {
	case KindSimFeeOverride:
		var r SimFeeOverride
		if err := decodeParams(env.Params, &r); err != nil {
			return nil, err
		}
		rule = r
	case KindMNPDiscountScope:
		var r MNPDiscountScope
		if err := decodeParams(env.Params, &r); err != nil {
			return nil, err
		}
		rule = r
	case KindPaybackRateOverride:
		var r PaybackRateOverride
		if err := decodeParams(env.Params, &r); err != nil {
			return nil, err
		}
		rule = r
	case KindFixedDeduction:
		var r FixedDeduction
		if err := decodeParams(env.Params, &r); err != nil {
			return nil, err
		}
		rule = r
	case KindRounding:
		var r Rounding
		if err := decodeParams(env.Params, &r); err != nil {
			return nil, err
		}
		rule = r
	default:
		return nil, fmt.Errorf("unknown rule kind %q", env.Kind)
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing params")
	}
	return json.Unmarshal(raw, v)
}

// ParseRuleSet decodes a persisted rule column. Empty input yields an empty set.
func ParseRuleSet(data []byte) (RuleSet, error) {
	if len(data) == 0 || string(data) == "null" {
		return RuleSet{}, nil
	}
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// Validate checks every rule and that singleton kinds appear at most once.
func (rs RuleSet) Validate() error {
	seen := make(map[RuleKind]bool)
	for i, r := range rs {
		if r == nil {
			return fmt.Errorf("rule %d is empty", i)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		switch r.Kind() {
		case KindMNPDiscountScope, KindRounding:
			if seen[r.Kind()] {
				return fmt.Errorf("rule %d: %s may appear only once", i, r.Kind())
			}
			seen[r.Kind()] = true
		}
	}
	return nil
}

// specificity ranks a carrier/activation filter: exact pair > carrier > activation > any.
// The second result is false when the filter does not match the sale at all.
func specificity(carrier Carrier, activation ActivationType, in Input) (int, bool) {
	if carrier != "" && carrier != in.Carrier {
		return 0, false
	}
	if activation != "" && activation != in.ActivationType {
		return 0, false
	}
	score := 0
	if carrier != "" {
		score += 2
	}
	if activation != "" {
		score++
	}
	return score, true
}
