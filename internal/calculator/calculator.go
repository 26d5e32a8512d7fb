package calculator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ErrLocationNotFound is returned when the requested location is not in the tariff table
var ErrLocationNotFound = errors.New("location not found")

// Mode selects the staff (pro) or client view of a calculation
type Mode string

const (
	ModeClient Mode = "client"
	ModePro    Mode = "pro"
)

func (m Mode) Valid() bool {
	return m == ModeClient || m == ModePro
}

const minVehicleYear = 1980

// Request holds the parameters of one landed-cost calculation
type Request struct {
	Auction     Auction    `json:"auction"`
	Bid         float64    `json:"bid"`
	Location    string     `json:"location"`
	Insurance   bool       `json:"insurance"`
	VehicleYear int        `json:"vehicleYear"`
	Engine      EngineType `json:"engineType"`
	VolumeCC    *float64   `json:"engineVolumeCc,omitempty"`
	BatteryKWh  *float64   `json:"batteryCapacityKwh,omitempty"`
	Mode        Mode       `json:"mode"`
}

// ValidationError reports which request field is invalid
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the request against the input rules of the calculator
func (r Request) Validate(now time.Time) error {
	if !r.Mode.Valid() {
		return invalid("mode", "unknown mode %q", r.Mode)
	}
	if !r.Auction.Valid() {
		return invalid("auction", "unknown auction %q", r.Auction)
	}
	if !positive(r.Bid) {
		return invalid("bid", "must be a finite number greater than zero")
	}
	if r.Location == "" {
		return invalid("location", "is required")
	}
	if maxYear := now.Year() + 1; r.VehicleYear < minVehicleYear || r.VehicleYear > maxYear {
		return invalid("vehicleYear", "must be between %d and %d", minVehicleYear, maxYear)
	}

	switch r.Engine {
	case Gasoline, Diesel:
		if r.VolumeCC == nil {
			return invalid("engineVolumeCc", "is required for %s engines", r.Engine)
		}
		if !positive(*r.VolumeCC) {
			return invalid("engineVolumeCc", "must be a finite number greater than zero")
		}
	case Electric:
		if r.BatteryKWh == nil {
			return invalid("batteryCapacityKwh", "is required for electric cars")
		}
		if !positive(*r.BatteryKWh) {
			return invalid("batteryCapacityKwh", "must be a finite number greater than zero")
		}
	case Hybrid:
	default:
		return invalid("engineType", "unknown engine type %q", r.Engine)
	}
	return nil
}

// positive rejects NaN and infinities along with non-positive values
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Result holds the complete landed-cost breakdown
type Result struct {
	Request         Request             `json:"request"`
	Port            string              `json:"port"`
	AuctionFees     AuctionFeeBreakdown `json:"auctionFees"`
	SwiftFee        float64             `json:"swiftFee"`
	Insurance       float64             `json:"insurance"`
	FixedCosts      []LineItem          `json:"fixedCosts"`
	FixedCostsTotal float64             `json:"fixedCostsTotal"`
	ShippingToPort  float64             `json:"shippingToPort"`
	OceanFreight    float64             `json:"oceanFreight"`
	CustomsValue    float64             `json:"customsValue"`
	Customs         CustomsBreakdown    `json:"customs"`
	Total           float64             `json:"total"`
}

// Calculate performs the full landed-cost calculation against a tariff table.
// An unknown location fails with ErrLocationNotFound before customs is computed.
func Calculate(req Request, table *Table, now time.Time) (*Result, error) {
	if err := req.Validate(now); err != nil {
		return nil, err
	}
	pro := req.Mode == ModePro

	fees, err := AuctionFees(req.Auction, req.Bid)
	if err != nil {
		return nil, err
	}

	// payment and insurance are charged on the bid including auction fees
	paid := sum(req.Bid, fees.Total)
	swift := paid * swiftRate
	if !pro {
		swift += clientSwiftSurcharge
	}

	var insurance float64
	if req.Insurance {
		insurance = paid * insuranceRate
	}

	fixed := FixedCosts(req.Mode)
	fixedAmounts := make([]float64, len(fixed))
	for i, item := range fixed {
		fixedAmounts[i] = item.Amount
	}
	fixedTotal := sum(fixedAmounts...)

	shipping, ok := ShippingToPort(table, req.Location, pro)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, req.Location)
	}
	entry, _ := table.Lookup(req.Location)
	freight := OceanFreight(entry.Port)

	customsValue := sum(req.Bid, fees.Total, shipping, freight)
	customs := Customs(CustomsParams{
		RegistrationYear: req.VehicleYear,
		CurrentYear:      now.Year(),
		Engine:           req.Engine,
		VolumeCC:         req.VolumeCC,
		BatteryKWh:       req.BatteryKWh,
		CustomsValue:     customsValue,
	})

	res := &Result{
		Request:         req,
		Port:            entry.Port,
		AuctionFees:     fees,
		SwiftFee:        round2(swift),
		Insurance:       round2(insurance),
		FixedCosts:      fixed,
		FixedCostsTotal: fixedTotal,
		ShippingToPort:  round2(shipping),
		OceanFreight:    freight,
		CustomsValue:    customsValue,
		Customs:         customs,
	}
	res.Total = sum(req.Bid, fees.Total, res.SwiftFee, res.Insurance, fixedTotal,
		res.ShippingToPort, freight, customs.Total)
	return res, nil
}

// round2 rounds to 2 decimal places
func round2(val float64) float64 {
	return decimal.NewFromFloat(val).Round(2).InexactFloat64()
}

// sum adds amounts in decimal and rounds the result to cents
func sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}
