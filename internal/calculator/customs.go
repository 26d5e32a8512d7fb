package calculator

import (
	"fmt"
	"strings"
	"time"
)

// EngineType selects the excise formula
type EngineType string

const (
	Gasoline EngineType = "gasoline"
	Diesel   EngineType = "diesel"
	Hybrid   EngineType = "hybrid"
	Electric EngineType = "electric"
)

// EngineTypes returns all engine types in menu order
func EngineTypes() []EngineType {
	return []EngineType{Gasoline, Diesel, Hybrid, Electric}
}

// Label is the Ukrainian button caption
func (e EngineType) Label() string {
	switch e {
	case Gasoline:
		return "Бензин"
	case Diesel:
		return "Дизель"
	case Hybrid:
		return "Гібрид"
	case Electric:
		return "Електро"
	}
	return string(e)
}

func (e EngineType) Valid() bool {
	switch e {
	case Gasoline, Diesel, Hybrid, Electric:
		return true
	}
	return false
}

// ParseEngineType accepts English ids and Ukrainian labels, case-insensitively
func ParseEngineType(s string) (EngineType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, e := range EngineTypes() {
		if v == string(e) || v == strings.ToLower(e.Label()) {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown engine type %q", s)
}

// CustomsParams are the inputs of the customs computation
type CustomsParams struct {
	RegistrationYear int
	// CurrentYear of 0 means the current calendar year
	CurrentYear  int
	Engine       EngineType
	VolumeCC     *float64
	BatteryKWh   *float64
	CustomsValue float64
}

// CustomsBreakdown is the Ukrainian import clearance cost in USD
type CustomsBreakdown struct {
	Duty      float64 `json:"duty"`
	Excise    float64 `json:"excise"`
	VAT       float64 `json:"vat"`
	BrokerFee float64 `json:"brokerFee"`
	Total     float64 `json:"total"`
}

// Customs computes duty, excise and VAT for an imported car.
// Electric cars are exempt from duty and VAT.
func Customs(p CustomsParams) CustomsBreakdown {
	year := p.CurrentYear
	if year == 0 {
		year = time.Now().Year()
	}
	age := min(max(year-p.RegistrationYear, minAgeCoeff), maxAgeCoeff)

	var duty float64
	if p.Engine != Electric {
		duty = p.CustomsValue * dutyRate
	}

	excise := exciseEUR(p.Engine, age, p.VolumeCC, p.BatteryKWh) * eurToUSD

	var vat float64
	if p.Engine != Electric {
		vat = (p.CustomsValue + duty + excise) * vatRate
	}

	b := CustomsBreakdown{
		Duty:      round2(duty),
		Excise:    round2(excise),
		VAT:       round2(vat),
		BrokerFee: customsBroker,
	}
	b.Total = sum(b.Duty, b.Excise, b.VAT, b.BrokerFee)
	return b
}

func exciseEUR(engine EngineType, age int, volumeCC, batteryKWh *float64) float64 {
	switch engine {
	case Gasoline:
		if volumeCC == nil {
			return 0
		}
		rate := float64(gasolineSmallRate)
		if *volumeCC > gasolineVolumeLimit {
			rate = gasolineLargeRate
		}
		return rate * (*volumeCC / 1000) * float64(age)
	case Diesel:
		if volumeCC == nil {
			return 0
		}
		rate := float64(dieselSmallRate)
		if *volumeCC > dieselVolumeLimit {
			rate = dieselLargeRate
		}
		return rate * (*volumeCC / 1000) * float64(age)
	case Hybrid:
		return hybridExciseEUR
	case Electric:
		if batteryKWh == nil {
			return 0
		}
		return *batteryKWh * electricEURPerKWh
	}
	return 0
}
