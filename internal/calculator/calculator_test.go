package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func testTable() *Table {
	return NewTable([]TariffEntry{
		{Auction: Copart, Location: "TX - DALLAS", Port: "Houston", Rate: RateRange{400, 600}},
		{Auction: Copart, Location: "CA - LOS ANGELES", Port: "Los Angeles", Rate: RateRange{150, 300}},
		{Auction: IAAI, Location: "FL - MIAMI", Port: "Savannah", Rate: RateRange{350, 450}},
	})
}

func baseRequest() Request {
	return Request{
		Auction:     Copart,
		Bid:         10000,
		Location:    "Copart: TX - DALLAS",
		VehicleYear: 2018,
		Engine:      Gasoline,
		VolumeCC:    ptr(2000),
		Mode:        ModeClient,
	}
}

func TestCalculate_ClientReferenceScenario(t *testing.T) {
	res, err := Calculate(baseRequest(), testTable(), testNow)
	require.NoError(t, err)

	assert.Equal(t, "Houston", res.Port)
	assert.InDelta(t, 1130.0, res.AuctionFees.Total, 0.001)
	assert.InDelta(t, 433.9, res.SwiftFee, 0.001)
	assert.Zero(t, res.Insurance)
	assert.InDelta(t, 2180.0, res.FixedCostsTotal, 0.001)
	assert.Len(t, res.FixedCosts, 5)
	assert.InDelta(t, 700.0, res.ShippingToPort, 0.001)
	assert.InDelta(t, 900.0, res.OceanFreight, 0.001)
	assert.InDelta(t, 12730.0, res.CustomsValue, 0.001)
	assert.InDelta(t, 5130.8, res.Customs.Total, 0.001)
	assert.InDelta(t, 20474.7, res.Total, 0.001)
}

func TestCalculate_ProScenario(t *testing.T) {
	req := baseRequest()
	req.Mode = ModePro

	res, err := Calculate(req, testTable(), testNow)
	require.NoError(t, err)

	assert.InDelta(t, 333.9, res.SwiftFee, 0.001)
	assert.InDelta(t, 1680.0, res.FixedCostsTotal, 0.001)
	assert.Len(t, res.FixedCosts, 4)
	for _, item := range res.FixedCosts {
		assert.NotEqual(t, companyServiceFee, item.Name)
	}
	assert.InDelta(t, 600.0, res.ShippingToPort, 0.001)
	assert.InDelta(t, 12630.0, res.CustomsValue, 0.001)
	assert.InDelta(t, 5098.8, res.Customs.Total, 0.001)
	assert.InDelta(t, 19742.7, res.Total, 0.001)
}

func TestCalculate_InsuranceAndPremiumPort(t *testing.T) {
	req := baseRequest()
	req.Location = "Copart: CA - LOS ANGELES"
	req.Insurance = true

	res, err := Calculate(req, testTable(), testNow)
	require.NoError(t, err)

	assert.InDelta(t, 222.6, res.Insurance, 0.001)
	assert.InDelta(t, 1600.0, res.OceanFreight, 0.001)
	assert.InDelta(t, 500.0, res.ShippingToPort, 0.001, "client floor applies")
}

func TestCalculate_TotalIsSumOfComponents(t *testing.T) {
	req := Request{
		Auction:     IAAI,
		Bid:         7345.55,
		Location:    "IAAI: FL - MIAMI",
		Insurance:   true,
		VehicleYear: 2016,
		Engine:      Diesel,
		VolumeCC:    ptr(2200),
		Mode:        ModeClient,
	}

	res, err := Calculate(req, testTable(), testNow)
	require.NoError(t, err)

	components := req.Bid + res.AuctionFees.Total + res.SwiftFee + res.Insurance +
		res.FixedCostsTotal + res.ShippingToPort + res.OceanFreight + res.Customs.Total
	assert.InDelta(t, round2(components), res.Total, 0.001)
}

func TestCalculate_UnknownLocation(t *testing.T) {
	req := baseRequest()
	req.Location = "Copart: NOWHERE"

	res, err := Calculate(req, testTable(), testNow)

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationNotFound))
}

func TestCalculate_EmptyTable(t *testing.T) {
	_, err := Calculate(baseRequest(), NewTable(nil), testNow)
	assert.ErrorIs(t, err, ErrLocationNotFound)

	_, err = Calculate(baseRequest(), nil, testNow)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"zero bid", func(r *Request) { r.Bid = 0 }, "bid"},
		{"negative bid", func(r *Request) { r.Bid = -5 }, "bid"},
		{"year too old", func(r *Request) { r.VehicleYear = 1979 }, "vehicleYear"},
		{"year too new", func(r *Request) { r.VehicleYear = 2027 }, "vehicleYear"},
		{"missing volume", func(r *Request) { r.VolumeCC = nil }, "engineVolumeCc"},
		{"zero volume", func(r *Request) { r.VolumeCC = ptr(0) }, "engineVolumeCc"},
		{"infinite bid", func(r *Request) { r.Bid = math.Inf(1) }, "bid"},
		{"NaN bid", func(r *Request) { r.Bid = math.NaN() }, "bid"},
		{"infinite volume", func(r *Request) { r.VolumeCC = ptr(math.Inf(1)) }, "engineVolumeCc"},
		{"NaN volume", func(r *Request) { r.VolumeCC = ptr(math.NaN()) }, "engineVolumeCc"},
		{"infinite battery", func(r *Request) { r.Engine, r.BatteryKWh = Electric, ptr(math.Inf(1)) }, "batteryCapacityKwh"},
		{"NaN battery", func(r *Request) { r.Engine, r.BatteryKWh = Electric, ptr(math.NaN()) }, "batteryCapacityKwh"},
		{"electric without battery", func(r *Request) { r.Engine = Electric }, "batteryCapacityKwh"},
		{"unknown engine", func(r *Request) { r.Engine = "steam" }, "engineType"},
		{"unknown mode", func(r *Request) { r.Mode = "vip" }, "mode"},
		{"unknown auction", func(r *Request) { r.Auction = "manheim" }, "auction"},
		{"missing location", func(r *Request) { r.Location = "" }, "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)

			err := req.Validate(testNow)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCalculate_NonFiniteInputIsRejected(t *testing.T) {
	req := baseRequest()
	req.Bid = math.Inf(1)

	var (
		res *Result
		err error
	)
	require.NotPanics(t, func() { res, err = Calculate(req, testTable(), testNow) })
	assert.Nil(t, res)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bid", verr.Field)
}

func TestRequest_ValidateAccepts(t *testing.T) {
	req := baseRequest()
	req.VehicleYear = 2026
	assert.NoError(t, req.Validate(testNow))

	hybrid := baseRequest()
	hybrid.Engine = Hybrid
	hybrid.VolumeCC = nil
	assert.NoError(t, hybrid.Validate(testNow))

	electric := baseRequest()
	electric.Engine = Electric
	electric.VolumeCC = nil
	electric.BatteryKWh = ptr(75)
	assert.NoError(t, electric.Validate(testNow))
}

func TestShippingToPort(t *testing.T) {
	table := testTable()

	pro, ok := ShippingToPort(table, "Copart: TX - DALLAS", true)
	require.True(t, ok)
	assert.Equal(t, 600.0, pro)

	client, ok := ShippingToPort(table, "Copart: TX - DALLAS", false)
	require.True(t, ok)
	assert.Equal(t, 700.0, client)

	floored, ok := ShippingToPort(table, "Copart: CA - LOS ANGELES", false)
	require.True(t, ok)
	assert.Equal(t, 500.0, floored)

	again, _ := ShippingToPort(table, "Copart: TX - DALLAS", false)
	assert.Equal(t, client, again)

	_, ok = ShippingToPort(table, "IAAI: TX - DALLAS", true)
	assert.False(t, ok)
}

func TestOceanFreight(t *testing.T) {
	assert.Equal(t, 1600.0, OceanFreight("Los Angeles"))
	assert.Equal(t, 900.0, OceanFreight("Houston"))
	assert.Equal(t, 900.0, OceanFreight("los angeles"))
}
