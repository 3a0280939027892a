package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Leg is one constituent order of a multi-leg arbitrage trade.
type Leg struct {
	TokenID  TokenID
	AskPrice Price
	AskSize  Volume
}

// Opportunity is a detected mispricing across one or more legs. All derived
// fields (TotalCost, Edge, ExpectedProfit) are computed once at
// construction and are immutable thereafter (testable property 1).
type Opportunity struct {
	ID             string
	MarketIDs      []MarketID
	MarketSlug     string
	MarketQuestion string
	Legs           []Leg
	Payout         Price
	DetectedAt     time.Time

	Volume         Volume
	TotalCost      Price
	Edge           Price
	ExpectedProfit Price

	// TotalFees and NetProfit extend the spec's base invariants with the
	// fee-aware view the teacher's console reporter prints (NetProfit,
	// NetProfitBPS). RiskManager gates on NetProfit, not ExpectedProfit.
	TotalFees    Price
	NetProfit    Price
	NetProfitBPS int64
}

// NewOpportunity builds an Opportunity from its legs, enforcing the
// invariants of SPEC_FULL §3: TotalCost = Σ legs[i].AskPrice,
// Edge = Payout - TotalCost, ExpectedProfit = Edge * Volume. Volume is the
// minimum of the legs' available ask sizes. takerFee is applied once per
// leg against the traded volume to produce NetProfit.
func NewOpportunity(marketIDs []MarketID, marketSlug, marketQuestion string, legs []Leg, payout Price, takerFee Price) *Opportunity {
	totalCost := decimalZero()
	volume := legs[0].AskSize
	for _, leg := range legs {
		totalCost = totalCost.Add(leg.AskPrice)
		volume = MinVolume(volume, leg.AskSize)
	}

	edge := payout.Sub(totalCost)
	grossProfit := edge.Mul(volume)

	totalFees := totalCost.Mul(volume).Mul(takerFee)
	netProfit := grossProfit.Sub(totalFees)

	netBPS := int64(0)
	if !volume.IsZero() {
		netBPS = netProfit.Div(volume).Mul(decimalTenThousand()).IntPart()
	}

	return &Opportunity{
		ID:             uuid.New().String(),
		MarketIDs:      marketIDs,
		MarketSlug:     marketSlug,
		MarketQuestion: marketQuestion,
		Legs:           legs,
		Payout:         payout,
		DetectedAt:     time.Now(),
		Volume:         volume,
		TotalCost:      totalCost,
		Edge:           edge,
		ExpectedProfit: grossProfit,
		TotalFees:      totalFees,
		NetProfit:      netProfit,
		NetProfitBPS:   netBPS,
	}
}

// Key is the deduplication identity the orchestrator uses: same market set,
// same legs (by token) collapse to one opportunity per detection round.
func (o *Opportunity) Key() string {
	key := ""
	for _, m := range o.MarketIDs {
		key += string(m) + ","
	}
	key += "|"
	for _, l := range o.Legs {
		key += string(l.TokenID) + ";"
	}
	return key
}

func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] Market=%s Legs=%d Cost=%s Edge=%s Volume=%s NetProfit=%s(%dbps)",
		shortID(o.ID), o.MarketSlug, len(o.Legs), o.TotalCost.String(), o.Edge.String(),
		o.Volume.String(), o.NetProfit.String(), o.NetProfitBPS,
	)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
