package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"InvestLogic/internal/calculator"
	"InvestLogic/internal/calendar"
	"InvestLogic/internal/model"
	"InvestLogic/internal/strategy"
)

// EntryAlert is a live price reaching a user's next tranche target.
type EntryAlert struct {
	Username string
	Symbol   string
	Turn     int
	Target   float64
	Price    float64
	Amount   float64
}

// FormatEntryAlert formats a tranche entry alert.
func FormatEntryAlert(a EntryAlert) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s %d회차 진입 구간</b>\n\n", a.Symbol, a.Turn))
	if a.Username != "" {
		b.WriteString(fmt.Sprintf("사용자: %s\n", a.Username))
	}
	b.WriteString(fmt.Sprintf("현재가: $%.2f\n", a.Price))
	b.WriteString(fmt.Sprintf("목표가: $%.2f\n", a.Target))
	b.WriteString(fmt.Sprintf("매수 금액: %s원\n", groupThousands(a.Amount)))
	return b.String()
}

// FormatMarketStatus formats the snapshot together with the admin gauge.
func FormatMarketStatus(snap *model.MarketSnapshot, g strategy.Gauge, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>시장 현황</b> | %s\n\n", now.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("%s 시장 상태: %s (%d)\n\n", g.Emoji, g.Status, g.Score))
	if snap != nil {
		b.WriteString(FormatQuote(snap.Main))
		keys := make([]string, 0, len(snap.Indexes))
		for k := range snap.Indexes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(FormatQuote(snap.Indexes[k]))
		}
	}
	e := calendar.NextExpiries(now)
	b.WriteString(fmt.Sprintf("\n옵션 만기: 🇰🇷 %s | 🇺🇸 %s\n", e.KR.Format("01/02"), e.US.Format("01/02")))
	return b.String()
}

// FormatQuote formats a single quote line.
func FormatQuote(q model.Quote) string {
	arrow := "▲"
	if q.Change < 0 {
		arrow = "▼"
	}
	return fmt.Sprintf("%s: %.2f %s %+.2f%%\n", q.Symbol, q.Price, arrow, q.ChangePercent)
}

// FormatZone formats a drawdown zone reading.
func FormatZone(current, high float64, z calculator.Zone) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📉 <b>하락률 %.2f%%</b> (고점 %.2f → 현재 %.2f)\n", z.DropRate, high, current))
	b.WriteString(z.Label + "\n")
	if z.Guide != "" {
		b.WriteString(z.Guide + "\n")
	}
	return b.String()
}

// HelpText lists the bot commands.
func HelpText() string {
	return "사용 가능한 명령어:\n" +
		"/status - 시장 현황\n" +
		"/quote - 나스닥 선물 시세\n" +
		"/zone &lt;현재가&gt; &lt;고점&gt; - 하락 구간 계산\n" +
		"/help - 도움말"
}

// groupThousands renders an integer amount with comma separators.
func groupThousands(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
