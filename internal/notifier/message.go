package notifier

import (
	"fmt"
	"strings"
	"time"

	"aurum/internal/advisory"
	"aurum/internal/state"
	"aurum/internal/types"
)

const maxMessageLen = 3800

// Section 通知中的一个段落。
type Section struct {
	Title string
	Lines []string
}

// Message 统一格式的推送载体。
type Message struct {
	Icon      string
	Title     string
	Sections  []Section
	Timestamp time.Time
}

// SignalApproved formats the push for a judge-approved bracket signal.
func SignalApproved(c types.SignalContract, v advisory.Verdict) Message {
	icon := "🟢"
	if c.Direction == types.DirectionSell {
		icon = "🔴"
	}
	m := Message{
		Icon:      icon,
		Title:     fmt.Sprintf("SIGNAL %s XAUUSD APPROVED", c.Direction),
		Timestamp: time.Now(),
	}
	if c.Setup != nil {
		m.Sections = append(m.Sections, Section{
			Title: "TRADING PLAN",
			Lines: []string{
				fmt.Sprintf("Entry  %.2f", c.Setup.Entry),
				fmt.Sprintf("Stop   %.2f", c.Setup.Stop),
				fmt.Sprintf("Target %.2f", c.Setup.Target),
			},
		})
	}
	m.Sections = append(m.Sections, Section{
		Title: "CONTEXT",
		Lines: []string{
			"Rule: " + c.Reason,
			fmt.Sprintf("Trend %s | ATR %.2f | spread %.2f", c.Metrics.Trend, c.Metrics.ATR, c.Metrics.Spread),
			"Structure: " + c.Metrics.Structure,
		},
	}, Section{
		Title: "JUDGE",
		Lines: []string{
			fmt.Sprintf("%s (confidence %d)", v.Decision, v.Confidence),
			v.Reason,
		},
	})
	return m
}

// PositionResolved formats the push when a tracked position hits target,
// stop or expiry.
func PositionResolved(st state.Status, rec *state.Record) Message {
	icon := "💀"
	if st == state.StatusTargetHit {
		icon = "💰"
	}
	m := Message{
		Icon:      icon,
		Title:     fmt.Sprintf("SIGNAL %s", st),
		Timestamp: time.Now(),
	}
	if rec != nil {
		m.Sections = append(m.Sections, Section{
			Title: "POSITION",
			Lines: []string{
				fmt.Sprintf("%s entry %.2f", rec.Type, rec.Entry),
				fmt.Sprintf("SL %.2f | TP %.2f", rec.SL, rec.TP),
				"Opened: " + time.Unix(rec.OpenedAtWallTS, 0).UTC().Format("2006-01-02 15:04:05 MST"),
			},
		})
	}
	return m
}

// CriticalAlert formats operator alerts for sustained guard failures
// (persistent lag, state-write failure).
func CriticalAlert(kind, detail string) Message {
	return Message{
		Icon:      "🚨",
		Title:     "CRITICAL: " + kind,
		Sections:  []Section{{Lines: []string{detail}}},
		Timestamp: time.Now(),
	}
}

// Render 生成 Markdown 文本，自动裁剪长度。
func (m Message) Render() string {
	var b strings.Builder
	header := strings.TrimSpace(m.Icon + " *" + m.Title + "*")
	b.WriteString(header + "\n\n")
	for _, sec := range m.Sections {
		lines := make([]string, 0, len(sec.Lines))
		for _, line := range sec.Lines {
			if text := strings.TrimSpace(line); text != "" {
				lines = append(lines, text)
			}
		}
		if len(lines) == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(title + "\n")
		}
		b.WriteString("```\n")
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
		b.WriteString("```\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString(m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}
