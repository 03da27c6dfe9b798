package models

import "time"

// PositionSide identifies the direction of an open position
type PositionSide string

// Position sides
const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// Opposes reports whether a signal is opposite to the position side
func (s PositionSide) Opposes(signal Signal) bool {
	switch s {
	case SideLong:
		return signal == SignalSell
	case SideShort:
		return signal == SignalBuy
	}
	return false
}

// Position is an in-flight position owned exclusively by one simulator run.
// AvgEntry is volume-weighted across the initial fill and any nanpin fills.
type Position struct {
	Side        PositionSide
	AvgEntry    float64
	TotalVolume float64
	StopLoss    float64
	TakeProfit  float64
	NanpinCount int
	Commission  float64
	OpenTime    time.Time
}

// AddLot folds one more lot at the given fill price into the volume-weighted
// average entry and increments the nanpin counter.
func (p *Position) AddLot(fillPrice, lotSize, commission float64) {
	newVolume := p.TotalVolume + lotSize
	p.AvgEntry = (p.AvgEntry*p.TotalVolume + fillPrice*lotSize) / newVolume
	p.TotalVolume = newVolume
	p.NanpinCount++
	p.Commission += commission
}
