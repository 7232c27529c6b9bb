package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 12.5, 12.5, true},
		{"int", 7, 7, true},
		{"json number", json.Number("99.9"), 99.9, true},
		{"plain string", "42.50", 42.5, true},
		{"dollar string", "$1,234.56", 1234.56, true},
		{"whitespace", "  10 ", 10, true},
		{"empty string", "", 0, false},
		{"garbage string", "n/a", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerceFloat(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}

func TestCoerceTime(t *testing.T) {
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []any{
		"2026-03-15",
		"2026-03-15T00:00:00Z",
		"03/15/2026",
		float64(want.UnixMilli()),
		want,
	} {
		got, ok := coerceTime(in)
		require.True(t, ok, "%v", in)
		assert.True(t, got.Equal(want), "%v parsed to %v", in, got)
	}

	_, ok := coerceTime("not a date")
	assert.False(t, ok)
	_, ok = coerceTime(nil)
	assert.False(t, ok)
}

func TestLookup_ProbesAliases(t *testing.T) {
	raw := map[string]any{
		"receivedAmount": 5.0,
		"due_date":       nil,
	}

	v, ok := lookup(raw, "received_amount", "receivedAmount")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	// nil values count as absent.
	_, ok = lookup(raw, "due_date")
	assert.False(t, ok)
}

func TestStringField_BlankIsAbsent(t *testing.T) {
	raw := map[string]any{"memo": "   "}
	assert.False(t, stringField(raw, "memo").Present)
}

func TestBoolField(t *testing.T) {
	assert.True(t, boolField(map[string]any{"f": true}, "f"))
	assert.True(t, boolField(map[string]any{"f": "TRUE"}, "f"))
	assert.True(t, boolField(map[string]any{"f": 1.0}, "f"))
	assert.False(t, boolField(map[string]any{"f": "yes"}, "f"))
	assert.False(t, boolField(map[string]any{}, "f"))
}

func TestIntFieldDefault(t *testing.T) {
	assert.Equal(t, 10, intFieldDefault(map[string]any{"grace_days": 10.0}, 5, "grace_days"))
	assert.Equal(t, 5, intFieldDefault(map[string]any{}, 5, "grace_days"))
}
