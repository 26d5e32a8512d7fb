package calculator

import (
	"fmt"
	"math"
)

// AuctionFeeBreakdown holds the fee components charged by an auction house.
// Components that do not apply to a house stay zero.
type AuctionFeeBreakdown struct {
	Auction       Auction `json:"auction"`
	BuyerFee      float64 `json:"buyerFee"`
	VirtualBidFee float64 `json:"virtualBidFee,omitempty"`
	GateFee       float64 `json:"gateFee,omitempty"`
	DocFee        float64 `json:"docFee,omitempty"`
	MiscFee       float64 `json:"miscFee,omitempty"`
	InternetFee   float64 `json:"internetFee,omitempty"`
	ServiceFee    float64 `json:"serviceFee,omitempty"`
	Total         float64 `json:"total"`
}

// AuctionFees computes the fee breakdown for a bid at the given house
func AuctionFees(a Auction, bid float64) (AuctionFeeBreakdown, error) {
	switch a {
	case Copart:
		return CopartFees(bid), nil
	case IAAI:
		return IAAIFees(bid), nil
	}
	return AuctionFeeBreakdown{}, fmt.Errorf("unknown auction %q", a)
}

// tierFee returns the fee of the first tier whose limit is strictly above bid
func tierFee(tiers []feeTier, bid float64) (float64, bool) {
	for _, t := range tiers {
		if bid < t.Limit {
			return t.Fee, true
		}
	}
	return 0, false
}

// CopartFees computes Copart's buyer, virtual bid and flat fees
func CopartFees(bid float64) AuctionFeeBreakdown {
	buyer, ok := tierFee(copartBuyerFees, bid)
	if !ok {
		buyer = bid * copartLargeBidRate
	}
	virtual, ok := tierFee(copartVirtualBidFees, bid)
	if !ok {
		virtual = copartVirtualBidFallback
	}

	b := AuctionFeeBreakdown{
		Auction:       Copart,
		BuyerFee:      round2(buyer),
		VirtualBidFee: round2(virtual),
		GateFee:       copartGateFee,
		DocFee:        copartDocFee,
		MiscFee:       copartMiscFee,
	}
	b.Total = sum(b.BuyerFee, b.VirtualBidFee, b.GateFee, b.DocFee, b.MiscFee)
	return b
}

// IAAIFees computes IAAI's base fee plus internet and service fees.
// Non-positive bids carry no fees.
func IAAIFees(bid float64) AuctionFeeBreakdown {
	if bid <= 0 {
		return AuctionFeeBreakdown{Auction: IAAI}
	}

	base, ok := tierFee(iaaiBaseFees, bid)
	if !ok {
		last := iaaiBaseFees[len(iaaiBaseFees)-1]
		steps := math.Ceil((bid - last.Limit) / iaaiOverflowStep)
		base = last.Fee + steps*iaaiOverflowFee
	}

	b := AuctionFeeBreakdown{
		Auction:     IAAI,
		BuyerFee:    round2(base),
		InternetFee: iaaiInternetFee,
		ServiceFee:  iaaiServiceFee,
	}
	b.Total = sum(b.BuyerFee, b.InternetFee, b.ServiceFee)
	return b
}

// Items lists the fee lines as shown to staff
func (b AuctionFeeBreakdown) Items() []LineItem {
	switch b.Auction {
	case Copart:
		return []LineItem{
			{Name: "Збір покупця", Amount: b.BuyerFee},
			{Name: "Збір за віртуальну ставку", Amount: b.VirtualBidFee},
			{Name: "Портовий збір (Gate)", Amount: b.GateFee},
			{Name: "Документи та інші збори", Amount: sum(b.DocFee, b.MiscFee)},
		}
	case IAAI:
		return []LineItem{
			{Name: "Базовий збір", Amount: b.BuyerFee},
			{Name: "Інтернет-збір", Amount: b.InternetFee},
			{Name: "Сервісний збір", Amount: b.ServiceFee},
		}
	}
	return nil
}
