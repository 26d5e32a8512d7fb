package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestCustoms(t *testing.T) {
	tests := []struct {
		name   string
		params CustomsParams
		want   CustomsBreakdown
	}{
		{
			name: "gasoline small engine",
			params: CustomsParams{
				RegistrationYear: 2018, CurrentYear: 2025, Engine: Gasoline,
				VolumeCC: ptr(2000), CustomsValue: 12730,
			},
			want: CustomsBreakdown{Duty: 1273, Excise: 756, VAT: 2951.8, BrokerFee: 150, Total: 5130.8},
		},
		{
			name: "gasoline large engine",
			params: CustomsParams{
				RegistrationYear: 2020, CurrentYear: 2025, Engine: Gasoline,
				VolumeCC: ptr(3500), CustomsValue: 10000,
			},
			// 100 * 3.5 * 5 * 1.08
			want: CustomsBreakdown{Duty: 1000, Excise: 1890, VAT: 2578, BrokerFee: 150, Total: 5618},
		},
		{
			name: "diesel age clamped to fifteen",
			params: CustomsParams{
				RegistrationYear: 1990, CurrentYear: 2025, Engine: Diesel,
				VolumeCC: ptr(4000), CustomsValue: 5000,
			},
			// 150 * 4 * 15 * 1.08
			want: CustomsBreakdown{Duty: 500, Excise: 9720, VAT: 3044, BrokerFee: 150, Total: 13414},
		},
		{
			name: "future registration clamps age to one",
			params: CustomsParams{
				RegistrationYear: 2026, CurrentYear: 2025, Engine: Gasoline,
				VolumeCC: ptr(1000), CustomsValue: 1000,
			},
			want: CustomsBreakdown{Duty: 100, Excise: 54, VAT: 230.8, BrokerFee: 150, Total: 534.8},
		},
		{
			name: "registration five years ahead clamps age to one",
			params: CustomsParams{
				RegistrationYear: 2030, CurrentYear: 2025, Engine: Gasoline,
				VolumeCC: ptr(1000), CustomsValue: 1000,
			},
			want: CustomsBreakdown{Duty: 100, Excise: 54, VAT: 230.8, BrokerFee: 150, Total: 534.8},
		},
		{
			name: "registration thirty years back clamps age to fifteen",
			params: CustomsParams{
				RegistrationYear: 1995, CurrentYear: 2025, Engine: Gasoline,
				VolumeCC: ptr(1000), CustomsValue: 1000,
			},
			// 50 * 1.0 * 15 * 1.08
			want: CustomsBreakdown{Duty: 100, Excise: 810, VAT: 382, BrokerFee: 150, Total: 1442},
		},
		{
			name: "hybrid flat excise",
			params: CustomsParams{
				RegistrationYear: 2019, CurrentYear: 2025, Engine: Hybrid,
				CustomsValue: 10000,
			},
			want: CustomsBreakdown{Duty: 1000, Excise: 108, VAT: 2221.6, BrokerFee: 150, Total: 3479.6},
		},
		{
			name: "electric exempt from duty and vat",
			params: CustomsParams{
				RegistrationYear: 2021, CurrentYear: 2025, Engine: Electric,
				BatteryKWh: ptr(60), CustomsValue: 30000,
			},
			want: CustomsBreakdown{Duty: 0, Excise: 64.8, VAT: 0, BrokerFee: 150, Total: 214.8},
		},
		{
			name: "missing volume yields zero excise",
			params: CustomsParams{
				RegistrationYear: 2018, CurrentYear: 2025, Engine: Diesel,
				CustomsValue: 1000,
			},
			want: CustomsBreakdown{Duty: 100, Excise: 0, VAT: 220, BrokerFee: 150, Total: 470},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Customs(tt.params)
			assert.InDelta(t, tt.want.Duty, got.Duty, 0.001, "duty")
			assert.InDelta(t, tt.want.Excise, got.Excise, 0.001, "excise")
			assert.InDelta(t, tt.want.VAT, got.VAT, 0.001, "vat")
			assert.InDelta(t, tt.want.BrokerFee, got.BrokerFee, 0.001, "broker")
			assert.InDelta(t, tt.want.Total, got.Total, 0.001, "total")
			assert.InDelta(t, got.Duty+got.Excise+got.VAT+got.BrokerFee, got.Total, 0.001)
		})
	}
}

func TestParseEngineType(t *testing.T) {
	tests := map[string]EngineType{
		"gasoline": Gasoline,
		"Бензин":   Gasoline,
		"DIESEL":   Diesel,
		"дизель":   Diesel,
		"Гібрид":   Hybrid,
		"Електро":  Electric,
		"electric": Electric,
	}
	for in, want := range tests {
		got, err := ParseEngineType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseEngineType("steam")
	assert.Error(t, err)
}
