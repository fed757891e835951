package strategy

var gaugeScores = map[string]int{
	StatusFear:    30,
	StatusCaution: 50,
}

const defaultGaugeScore = 50

// proDiscount is the average-cost factor advertised for the PRO engine.
const proDiscount = 0.944

// Gauge is the half-dial reading for a market status.
type Gauge struct {
	Status string  `json:"status"`
	Emoji  string  `json:"emoji"`
	Score  int     `json:"score"`
	Angle  float64 `json:"angle"`
}

// GaugeScore maps a market status onto 0..100. Unknown statuses read neutral.
func GaugeScore(status string) int {
	if s, ok := gaugeScores[status]; ok {
		return s
	}
	return defaultGaugeScore
}

// GaugeAngle converts a 0..100 score to a needle angle in degrees (-90..90).
func GaugeAngle(score int) float64 {
	return float64(score)/100*180 - 90
}

// ReadGauge builds the gauge for status using the template's emoji.
func (r *Registry) ReadGauge(status string) Gauge {
	score := GaugeScore(status)
	return Gauge{
		Status: status,
		Emoji:  r.Lookup(status).Emoji,
		Score:  score,
		Angle:  GaugeAngle(score),
	}
}

// ProjectedProAverage is the average cost the PRO engine is advertised to
// reach given the plain plan's final expected average.
func ProjectedProAverage(finalAvg float64) float64 {
	return finalAvg * proDiscount
}

// ProDefensePercent is the advertised extra reduction in percent.
func ProDefensePercent() float64 {
	return (1 - proDiscount) * 100
}
