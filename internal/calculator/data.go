package calculator

// feeTier maps an exclusive upper bid bound to a flat fee
type feeTier struct {
	Limit float64
	Fee   float64
}

// LineItem is a named money amount shown in breakdowns
type LineItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Copart buyer fee schedule, ascending by limit. The order is significant:
// the first limit strictly above the bid wins.
var copartBuyerFees = []feeTier{
	{50, 1}, {100, 1}, {200, 25}, {300, 60}, {350, 85}, {400, 100}, {450, 125},
	{500, 135}, {550, 145}, {600, 155}, {700, 170}, {800, 195}, {900, 215},
	{1000, 230}, {1200, 250}, {1300, 270}, {1400, 285}, {1500, 300}, {1600, 315},
	{1700, 330}, {1800, 350}, {2000, 370}, {2400, 390}, {2500, 425}, {3000, 460},
	{3500, 519}, {4000, 569}, {4500, 619}, {5000, 669}, {5500, 650}, {6000, 675},
	{6500, 700}, {7000, 720}, {7500, 755}, {8000, 775}, {8500, 800}, {9000, 820},
	{10000, 820}, {10500, 850}, {11000, 850}, {11500, 850}, {12000, 860},
	{12500, 875}, {15000, 890},
}

var copartVirtualBidFees = []feeTier{
	{100, 0}, {500, 50}, {1000, 65}, {1500, 85}, {2000, 95}, {4000, 110},
	{6000, 125}, {8000, 145},
}

const (
	copartLargeBidRate       = 0.06
	copartVirtualBidFallback = 160
	copartGateFee            = 95
	copartDocFee             = 10
	copartMiscFee            = 15
)

var iaaiBaseFees = []feeTier{
	{100, 49}, {200, 79}, {300, 99}, {400, 139}, {500, 159}, {600, 179},
	{700, 199}, {800, 219}, {900, 239}, {1000, 259}, {1200, 289}, {1400, 309},
	{1500, 319}, {1600, 329}, {1800, 349}, {2000, 379}, {2400, 399}, {2500, 419},
	{3000, 469}, {3500, 519}, {4000, 569}, {4500, 619}, {5000, 669},
}

const (
	iaaiOverflowStep = 500
	iaaiOverflowFee  = 50
	iaaiInternetFee  = 89
	iaaiServiceFee   = 95
)

// Logistics and payment constants (USD)
const (
	PremiumPort          = "Los Angeles"
	premiumOceanFreight  = 1600
	standardOceanFreight = 900

	clientShippingMarkup = 100
	clientShippingFloor  = 500

	swiftRate            = 0.03
	clientSwiftSurcharge = 100
	insuranceRate        = 0.02
)

// Customs constants
const (
	eurToUSD      = 1.08
	dutyRate      = 0.10
	vatRate       = 0.20
	customsBroker = 150
	minAgeCoeff   = 1
	maxAgeCoeff   = 15

	gasolineSmallRate   = 50
	gasolineLargeRate   = 100
	gasolineVolumeLimit = 3000
	dieselSmallRate     = 75
	dieselLargeRate     = 150
	dieselVolumeLimit   = 3500
	hybridExciseEUR     = 100
	electricEURPerKWh   = 1
)

// companyServiceFee is the margin line the pro schedule leaves out
const companyServiceFee = "Вартість послуг компанії"

// fixedCosts is the client schedule, in display order
var fixedCosts = []LineItem{
	{Name: companyServiceFee, Amount: 500},
	{Name: "Парковка в порту США", Amount: 200},
	{Name: "Вигрузка в порту (Бремерхафен)", Amount: 500},
	{Name: "Доставка автовозом (Бременхафен-Стрий)", Amount: 900},
	{Name: "Витрати по митниці (Україна/Польща)", Amount: 80},
}

// FixedCosts returns the flat service cost schedule for a mode
func FixedCosts(mode Mode) []LineItem {
	items := make([]LineItem, 0, len(fixedCosts))
	for _, item := range fixedCosts {
		if mode == ModePro && item.Name == companyServiceFee {
			continue
		}
		items = append(items, item)
	}
	return items
}
