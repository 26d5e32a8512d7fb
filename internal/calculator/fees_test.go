package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopartFees_BuyerFeeBoundaries(t *testing.T) {
	tests := []struct {
		bid  float64
		want float64
	}{
		{0, 1},
		{49, 1},
		{50, 1},
		{99.99, 1},
		{100, 25},
		{100.01, 25},
		{4999, 669},
		{5000, 650},
		{9999, 820},
		{10000, 850},
		{14999, 890},
		{15000, 900},
		{20000, 1200},
	}

	for _, tt := range tests {
		got := CopartFees(tt.bid)
		assert.InDelta(t, tt.want, got.BuyerFee, 0.001, "bid %.2f", tt.bid)
	}
}

func TestCopartFees_VirtualBid(t *testing.T) {
	assert.Equal(t, 0.0, CopartFees(99).VirtualBidFee)
	assert.Equal(t, 50.0, CopartFees(100).VirtualBidFee)
	assert.Equal(t, 145.0, CopartFees(7999).VirtualBidFee)
	assert.Equal(t, 160.0, CopartFees(8000).VirtualBidFee)
}

func TestCopartFees_Total(t *testing.T) {
	fees := CopartFees(10000)

	assert.Equal(t, Copart, fees.Auction)
	assert.Equal(t, 850.0, fees.BuyerFee)
	assert.Equal(t, 160.0, fees.VirtualBidFee)
	assert.Equal(t, 95.0, fees.GateFee)
	assert.Equal(t, 10.0, fees.DocFee)
	assert.Equal(t, 15.0, fees.MiscFee)
	assert.InDelta(t, 1130.0, fees.Total, 0.001)
	assert.Zero(t, fees.InternetFee)
	assert.Zero(t, fees.ServiceFee)
}

func TestCopartFees_LargeBidRounded(t *testing.T) {
	fees := CopartFees(15333.33)

	assert.InDelta(t, 920.0, fees.BuyerFee, 0.001)
}

func TestIAAIFees(t *testing.T) {
	tests := []struct {
		name string
		bid  float64
		base float64
	}{
		{"lowest tier", 99, 49},
		{"tier boundary", 100, 79},
		{"last tier", 4999, 669},
		{"overflow at limit", 5000, 669},
		{"overflow one step", 5001, 719},
		{"overflow exact step", 5500, 719},
		{"overflow next step", 5501, 769},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fees := IAAIFees(tt.bid)
			assert.InDelta(t, tt.base, fees.BuyerFee, 0.001)
			assert.Equal(t, 89.0, fees.InternetFee)
			assert.Equal(t, 95.0, fees.ServiceFee)
			assert.InDelta(t, tt.base+89+95, fees.Total, 0.001)
		})
	}
}

func TestIAAIFees_NonPositiveBid(t *testing.T) {
	for _, bid := range []float64{0, -100} {
		fees := IAAIFees(bid)
		assert.Equal(t, AuctionFeeBreakdown{Auction: IAAI}, fees)
	}
}

func TestAuctionFees_Dispatch(t *testing.T) {
	copart, err := AuctionFees(Copart, 1000)
	require.NoError(t, err)
	assert.Equal(t, CopartFees(1000), copart)

	iaai, err := AuctionFees(IAAI, 1000)
	require.NoError(t, err)
	assert.Equal(t, IAAIFees(1000), iaai)

	_, err = AuctionFees("manheim", 1000)
	assert.Error(t, err)
}

func TestAuctionFeeBreakdown_ItemsSumToTotal(t *testing.T) {
	for _, fees := range []AuctionFeeBreakdown{CopartFees(3210), IAAIFees(3210)} {
		var total float64
		for _, item := range fees.Items() {
			total += item.Amount
		}
		assert.InDelta(t, fees.Total, total, 0.001, string(fees.Auction))
	}
}
