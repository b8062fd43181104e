package model

import (
	"fmt"
	"time"
)

// ConfluenceKind tags which structural reference a Confluence carries.
type ConfluenceKind string

const (
	ConfluenceFVG            ConfluenceKind = "fvg"
	ConfluenceOrderBlock     ConfluenceKind = "order_block"
	ConfluenceLiquiditySweep ConfluenceKind = "liquidity_sweep"
	ConfluenceSwingPoint     ConfluenceKind = "swing_level"
)

// Confluence is a tagged variant: exactly one pointer matching Kind is set.
type Confluence struct {
	Kind       ConfluenceKind  `json:"kind"`
	FVG        *FVG            `json:"fvg,omitempty"`
	OrderBlock *OrderBlock     `json:"order_block,omitempty"`
	Sweep      *LiquiditySweep `json:"liquidity_sweep,omitempty"`
	Swing      *SwingPoint     `json:"swing,omitempty"`
}

func FVGConfluence(f FVG) Confluence {
	return Confluence{Kind: ConfluenceFVG, FVG: &f}
}

func OrderBlockConfluence(ob OrderBlock) Confluence {
	return Confluence{Kind: ConfluenceOrderBlock, OrderBlock: &ob}
}

func SweepConfluence(s LiquiditySweep) Confluence {
	return Confluence{Kind: ConfluenceLiquiditySweep, Sweep: &s}
}

func SwingConfluence(s SwingPoint) Confluence {
	return Confluence{Kind: ConfluenceSwingPoint, Swing: &s}
}

// Label is the human-readable tag used in alerts.
func (c Confluence) Label() string {
	switch c.Kind {
	case ConfluenceFVG:
		return "FVG"
	case ConfluenceOrderBlock:
		return "Order Block"
	case ConfluenceLiquiditySweep:
		return "Liquidity sweep"
	case ConfluenceSwingPoint:
		return "Swing level"
	default:
		return string(c.Kind)
	}
}

// RejectionBlock is a candle with an outsized wick at structure.
type RejectionBlock struct {
	Index       int          `json:"index"`
	Time        time.Time    `json:"time"`
	Direction   Direction    `json:"direction"`
	WickHigh    float64      `json:"wick_high"`
	WickLow     float64      `json:"wick_low"`
	Midpoint    float64      `json:"wick_midpoint"`
	CandleHigh  float64      `json:"candle_high"`
	CandleLow   float64      `json:"candle_low"`
	Volume      float64      `json:"volume"`
	Confluences []Confluence `json:"confluences"`
	// ReversalConfirmed is set when a later close moved beyond the opposite
	// extreme of the rejection candle within the configured window.
	ReversalConfirmed bool `json:"reversal_confirmed"`
}

// Kinds returns the distinct confluence kinds in first-seen order.
func (rb RejectionBlock) Kinds() []ConfluenceKind {
	seen := make(map[ConfluenceKind]bool, len(rb.Confluences))
	var kinds []ConfluenceKind
	for _, c := range rb.Confluences {
		if !seen[c.Kind] {
			seen[c.Kind] = true
			kinds = append(kinds, c.Kind)
		}
	}
	return kinds
}

// Bias is a higher-timeframe directional read.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// Aligned reports whether the bias agrees with d.
func (b Bias) Aligned(d Direction) bool {
	return string(b) == string(d)
}

// HTFBias holds the 1h, 4h and daily bias.
type HTFBias struct {
	H1    Bias `json:"1h"`
	H4    Bias `json:"4h"`
	Daily Bias `json:"1d"`
}

// Killzone names a session window.
type Killzone string

const (
	KillzoneLondon  Killzone = "london"
	KillzoneNewYork Killzone = "newyork"
)

// WickRespect is the tri-state outcome of wick theory.
type WickRespect string

const (
	WickRespected    WickRespect = "respected"
	WickViolated     WickRespect = "violated"
	WickUndetermined WickRespect = "undetermined"
)

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string  `json:"name"`
	RawScore   float64 `json:"raw_score"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary"`
}

// Setup is the final output of the confluence engine.
type Setup struct {
	Symbol         string        `json:"symbol"`
	Timeframe      Timeframe     `json:"timeframe"`
	Direction      Direction     `json:"direction"`
	EntryPrice     float64       `json:"entry_price"`
	EntryTolerance float64       `json:"entry_tolerance_points"`
	StopPrice      float64       `json:"stop_price"`
	TargetPrice    float64       `json:"target_price"`
	RiskPoints     float64       `json:"risk_points"`
	RewardToRisk   float64       `json:"reward_to_risk"`
	Score          float64       `json:"score"`
	Factors        []FactorScore `json:"factors"`
	ConfluenceTags []string      `json:"confluence_tags"`
	HTFBias        HTFBias       `json:"htf_bias"`
	FormedAt       time.Time     `json:"formed_at"`
	Killzone       Killzone      `json:"killzone"`
	RejectionIndex int           `json:"rejection_index"`
	WickHigh       float64       `json:"wick_high"`
	WickLow        float64       `json:"wick_low"`
	WickRespect    WickRespect   `json:"wick_respect"`
	VolumeSpike    bool          `json:"volume_spike"`
}

// RewardPoints is the distance from entry to target.
func (s Setup) RewardPoints() float64 {
	return s.RiskPoints * s.RewardToRisk
}

// Key identifies a setup across polls. The rejection candle's open time is
// the stable form of its index when the fetch window slides.
func (s Setup) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", s.Symbol, s.Timeframe, s.Direction, s.FormedAt.Unix())
}
