package model

import "time"

// Frame is a column-oriented view of a series for bulk numeric consumers
// (indicator calculators, chart rendering). It is built only at the
// boundary; internal logic passes row slices around.
type Frame struct {
	Symbol   string
	Interval string
	Times    []time.Time
	Open     []float64
	High     []float64
	Low      []float64
	Close    []float64
	Volume   []float64
}

// NewFrame converts a point series into columnar form.
func NewFrame(points []MarketDataPoint) *Frame {
	f := &Frame{
		Times:  make([]time.Time, len(points)),
		Open:   make([]float64, len(points)),
		High:   make([]float64, len(points)),
		Low:    make([]float64, len(points)),
		Close:  make([]float64, len(points)),
		Volume: make([]float64, len(points)),
	}
	if len(points) > 0 {
		f.Symbol = points[0].Symbol
		f.Interval = points[0].Interval
	}
	for i, p := range points {
		f.Times[i] = p.Timestamp
		f.Open[i] = p.Open
		f.High[i] = p.High
		f.Low[i] = p.Low
		f.Close[i] = p.Close
		f.Volume[i] = p.Volume
	}
	return f
}

// Len returns the number of rows in the frame.
func (f *Frame) Len() int { return len(f.Times) }

// Column returns the named price column, or nil for an unknown name.
func (f *Frame) Column(name string) []float64 {
	switch name {
	case "open":
		return f.Open
	case "high":
		return f.High
	case "low":
		return f.Low
	case "close":
		return f.Close
	case "volume":
		return f.Volume
	}
	return nil
}
