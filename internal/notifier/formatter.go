package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"WickSentinel/internal/model"
)

// QualityRating buckets a confluence score.
func QualityRating(score float64) string {
	switch {
	case score >= 6:
		return "High"
	case score >= 4:
		return "Medium"
	default:
		return "Low"
	}
}

func inZone(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// FormatSetup formats a setup as a Telegram HTML alert.
func FormatSetup(s model.Setup, loc *time.Location) string {
	var b strings.Builder

	emoji := "🟢"
	if s.Direction == model.Bearish {
		emoji = "🔴"
	}
	b.WriteString(fmt.Sprintf("%s <b>Rejection Block - %s %s</b>\n\n", emoji, html.EscapeString(s.Symbol), s.Timeframe))
	b.WriteString(fmt.Sprintf("<b>Direction:</b> %s (%s)\n", strings.ToUpper(s.Direction.Side()), s.Direction))
	b.WriteString(fmt.Sprintf("<b>Quality:</b> %s (%.1f)\n", QualityRating(s.Score), s.Score))
	if s.Killzone != "" {
		b.WriteString(fmt.Sprintf("<b>Killzone:</b> %s\n", s.Killzone))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("<b>Entry:</b> %.2f (retrace into wick %.2f-%.2f)\n", s.EntryPrice, s.WickLow, s.WickHigh))
	b.WriteString(fmt.Sprintf("<b>Stop Loss:</b> %.2f\n", s.StopPrice))
	b.WriteString(fmt.Sprintf("<b>Take Profit:</b> %.2f\n\n", s.TargetPrice))

	b.WriteString(fmt.Sprintf("<b>Risk/Reward:</b> 1:%.1f\n", s.RewardToRisk))
	b.WriteString(fmt.Sprintf("<b>Risk:</b> %.2f points | <b>Target:</b> %.2f points\n", s.RiskPoints, s.RewardPoints()))
	if s.VolumeSpike {
		b.WriteString("<b>Volume:</b> spike, stop buffer widened\n")
	}
	b.WriteString(fmt.Sprintf("<b>HTF bias:</b> 1h %s | 4h %s | 1d %s\n", s.HTFBias.H1, s.HTFBias.H4, s.HTFBias.Daily))
	b.WriteString(fmt.Sprintf("<b>Wick 50%%:</b> %s\n\n", s.WickRespect))

	b.WriteString("<b>Confluence:</b>\n")
	for _, f := range s.Factors {
		if f.Weighted == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s (%s): %+.1f\n", f.Name, html.EscapeString(f.Commentary), f.Weighted))
	}
	b.WriteString(fmt.Sprintf("\n<i>Bar: %s</i>\n", inZone(s.FormedAt, loc).Format("2006-01-02 15:04 MST")))
	return b.String()
}

// FormatLogLine renders a setup on one line for console output.
func FormatLogLine(s model.Setup, loc *time.Location) string {
	tags := "-"
	if len(s.ConfluenceTags) > 0 {
		tags = strings.Join(s.ConfluenceTags, ", ")
	}
	return fmt.Sprintf("%s %s %s | bar=%s | score=%.1f | entry=%.2f stop=%.2f target=%.2f RR=1:%.1f | %s",
		s.Symbol, s.Timeframe, s.Direction,
		inZone(s.FormedAt, loc).Format("2006-01-02 15:04"),
		s.Score, s.EntryPrice, s.StopPrice, s.TargetPrice, s.RewardToRisk, tags)
}

// FormatSessionStart announces that the watch loop is running.
func FormatSessionStart(now time.Time, symbols []string, tf model.Timeframe, killzones []string) string {
	var b strings.Builder
	b.WriteString("🔔 <b>WickSentinel session started</b>\n\n")
	b.WriteString(fmt.Sprintf("<b>Date:</b> %s\n", now.Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("<b>Symbols:</b> %s (%s)\n", html.EscapeString(strings.Join(symbols, ", ")), tf))
	b.WriteString("<b>Killzones:</b>\n")
	for _, kz := range killzones {
		b.WriteString(fmt.Sprintf("  • %s\n", kz))
	}
	b.WriteString("\n<i>Monitoring for rejection blocks...</i>\n")
	return b.String()
}

// Status is the watch loop summary shown by /status.
type Status struct {
	StartedAt   time.Time `json:"started_at"`
	LastCycleAt time.Time `json:"last_cycle_at"`
	CycleID     string    `json:"cycle_id"`
	Symbols     []string  `json:"symbols"`
	Candidates  int       `json:"candidates"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
	Seen        int       `json:"seen"`
	Stale       []string  `json:"stale,omitempty"`
	FetchErrors []string  `json:"fetch_errors,omitempty"`
}

// FormatStatus formats the last cycle summary.
func FormatStatus(st Status) string {
	var b strings.Builder
	b.WriteString("📦 <b>WickSentinel status</b>\n\n")
	b.WriteString(fmt.Sprintf("Running since: %s\n", st.StartedAt.Format("2006-01-02 15:04 MST")))
	if st.LastCycleAt.IsZero() {
		b.WriteString("Last cycle: none yet\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Last cycle: %s (%s)\n", st.LastCycleAt.Format("15:04:05 MST"), st.CycleID))
	b.WriteString(fmt.Sprintf("Symbols: %s\n", html.EscapeString(strings.Join(st.Symbols, ", "))))
	b.WriteString(fmt.Sprintf("New setups: %d | delivered: %d | failed: %d\n", st.Candidates, st.Delivered, st.Failed))
	b.WriteString(fmt.Sprintf("Remembered setups: %d\n", st.Seen))
	if len(st.Stale) > 0 {
		b.WriteString(fmt.Sprintf("Stale data: %s\n", html.EscapeString(strings.Join(st.Stale, ", "))))
	}
	if len(st.FetchErrors) > 0 {
		b.WriteString(fmt.Sprintf("Fetch errors: %s\n", html.EscapeString(strings.Join(st.FetchErrors, ", "))))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "/status - last poll summary\n/help - this message"
}
