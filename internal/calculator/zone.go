package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Zone classifies how far a price sits below its peak.
type Zone struct {
	Level    int     `json:"level"` // 0 means above the previous high
	DropRate float64 `json:"drop_rate"`
	Label    string  `json:"label"`
	Guide    string  `json:"guide"`
}

var zones = []struct {
	maxDrop float64
	zone    Zone
}{
	{10, Zone{Level: 1, Label: "🟢 1구간 (안정권)", Guide: "아직은 관망하거나 소액만 적립하세요. (-10% 이내)"}},
	{20, Zone{Level: 2, Label: "🟡 2구간 (조정장)", Guide: "본격적인 분할매수 시작! 쫄지 말고 모아가세요. (-10% ~ -20%)"}},
	{30, Zone{Level: 3, Label: "🟠 3구간 (하락장)", Guide: "적극 매수 구간입니다. 수량을 확 늘리세요! (-20% ~ -30%)"}},
}

var deepZone = Zone{Level: 4, Label: "🔴 4구간 (폭락장/기회)", Guide: "역사적 저점 구간입니다. 계획한 최대 비중으로 매수하세요. (-30% 이상)"}

var newHighZone = Zone{Level: 0, Label: "📈 신고가 돌파!", Guide: "축하합니다! 즐기세요."}

// DrawdownZone maps the drawdown of current from high onto the four buying zones.
func DrawdownZone(current, high float64) (Zone, error) {
	if current <= 0 || high <= 0 {
		return Zone{}, errors.New("current and high must be positive")
	}
	drop := (high - current) / high * 100

	z := deepZone
	if drop < 0 {
		z = newHighZone
	} else {
		for _, c := range zones {
			if drop <= c.maxDrop {
				z = c.zone
				break
			}
		}
	}
	// the zone follows the exact drop; only the reported rate is rounded
	z.DropRate, _ = decimal.NewFromFloat(drop).Round(2).Float64()
	return z, nil
}
