package irt

import "math"

// ItemParams are the three parameters of the logistic response model.
type ItemParams struct {
	Difficulty     float64 `json:"difficulty"`
	Discrimination float64 `json:"discrimination"`
	Guessing       float64 `json:"guessing"`
}

// Model is the simplified three-parameter logistic (3PL) model with fixed
// defaults for items that carry no calibration.
type Model struct {
	Discrimination float64
	Guessing       float64
}

func DefaultModel() Model {
	return Model{Discrimination: 1.0, Guessing: 0.25}
}

// Params returns the parameters for an item of the given difficulty, preferring
// calibrated discrimination/guessing when supplied.
func (m Model) Params(difficulty float64, calibrated *ItemParams) ItemParams {
	if calibrated != nil {
		p := *calibrated
		if p.Discrimination <= 0 {
			p.Discrimination = m.Discrimination
		}
		if p.Guessing < 0 || p.Guessing >= 1 {
			p.Guessing = m.Guessing
		}
		return p
	}
	return ItemParams{Difficulty: difficulty, Discrimination: m.Discrimination, Guessing: m.Guessing}
}

// Probability is P(correct | theta) = c + (1-c) / (1 + exp(-a(theta-b))).
func Probability(theta float64, p ItemParams) float64 {
	return p.Guessing + (1.0-p.Guessing)*sigmoid(p.Discrimination*(theta-p.Difficulty))
}

// Information is the 3PL item information
// a^2 * ((P-c)^2 / (1-c)^2) * ((1-P) / P).
func Information(theta float64, p ItemParams) float64 {
	prob := Probability(theta, p)
	if prob <= 0 || prob >= 1 || p.Guessing >= 1 {
		return 0
	}
	num := (prob - p.Guessing) * (prob - p.Guessing)
	den := (1.0 - p.Guessing) * (1.0 - p.Guessing)
	return p.Discrimination * p.Discrimination * (num / den) * ((1.0 - prob) / prob)
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		z := math.Exp(-x)
		return 1.0 / (1.0 + z)
	}
	z := math.Exp(x)
	return z / (1.0 + z)
}

// normalCDF is the standard normal cumulative distribution.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

func clampRange(x float64, lo float64, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
