package settlement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleSet_DecodesTaggedRules(t *testing.T) {
	raw := []byte(`[
		{"kind": "sim_fee_override", "params": {"carrier": "MVNO", "amount": "0"}},
		{"kind": "mnp_discount_scope", "params": {"scope": "all_activations"}},
		{"kind": "payback_rate_override", "params": {"carrier": "KT", "activation_type": "port_in", "rate": "0.07"}},
		{"kind": "fixed_deduction", "params": {"amount": "1500", "label": "부가서비스 미유지"}},
		{"kind": "rounding", "params": {"mode": "down", "places": 0}}
	]`)

	rules, err := ParseRuleSet(raw)
	require.NoError(t, err)
	require.Len(t, rules, 5)

	sim, ok := rules[0].(SimFeeOverride)
	require.True(t, ok)
	assert.Equal(t, CarrierMVNO, sim.Carrier)
	assert.True(t, sim.Amount.IsZero())

	payback, ok := rules[2].(PaybackRateOverride)
	require.True(t, ok)
	assert.Equal(t, ActivationPortIn, payback.ActivationType)
	assert.Equal(t, "0.07", payback.Rate.String())

	assert.Equal(t, KindFixedDeduction, rules[3].Kind())
	assert.Equal(t, Rounding{Mode: RoundDown, Places: 0}, rules[4])
	assert.NoError(t, rules.Validate())
}

func TestRuleSet_MarshalUsesEnvelope(t *testing.T) {
	rules := RuleSet{MNPDiscountScope{Scope: MNPPortInOnly}}

	data, err := json.Marshal(rules)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"mnp_discount_scope","params":{"scope":"port_in_only"}}]`, string(data))

	decoded, err := ParseRuleSet(data)
	require.NoError(t, err)
	assert.Equal(t, rules, decoded)
}

func TestParseRuleSet_Empty(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte("null"), []byte("[]")} {
		rules, err := ParseRuleSet(raw)
		require.NoError(t, err)
		assert.Empty(t, rules)
	}
}

func TestParseRuleSet_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Unknown kind", `[{"kind": "bonus_multiplier", "params": {"factor": 2}}]`},
		{"Missing params", `[{"kind": "rounding"}]`},
		{"Unknown carrier filter", `[{"kind": "sim_fee_override", "params": {"carrier": "DOCOMO", "amount": "100"}}]`},
		{"Negative fixed deduction", `[{"kind": "fixed_deduction", "params": {"amount": "-1"}}]`},
		{"Payback rate out of range", `[{"kind": "payback_rate_override", "params": {"rate": "2"}}]`},
		{"Unknown MNP scope", `[{"kind": "mnp_discount_scope", "params": {"scope": "sometimes"}}]`},
		{"Not an array", `{"kind": "rounding"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleSet([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestRuleSet_ValidateRejectsDuplicateSingletons(t *testing.T) {
	rules := RuleSet{
		Rounding{Mode: RoundDown},
		Rounding{Mode: RoundUp},
	}
	assert.Error(t, rules.Validate())

	_, err := Compute(newActivation(), Policy{
		TaxRate:            rate("0.1"),
		DefaultPaybackRate: rate("0"),
		Rules:              rules,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
