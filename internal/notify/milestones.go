// Package notify delivers the rendered expiry report through the
// configured sinks: SMTP email, a Teams-style webhook and a SharePoint
// workbook. Every sink is best-effort; a failing sink never aborts the
// others.
package notify

import "appregwatch/internal/config"

// Milestones decides whether a credential at a given days-to-expiry
// triggers a discrete notification.
type Milestones struct {
	days   map[int]bool
	max    int
	policy string
}

// NewMilestones builds the matcher for the configured day counts and
// policy.
func NewMilestones(days []int, policy string) Milestones {
	m := Milestones{days: make(map[int]bool, len(days)), policy: policy}
	for _, d := range days {
		m.days[d] = true
		if d > m.max {
			m.max = d
		}
	}
	return m
}

// Match reports whether a notification fires for the given day count.
// Anything already expired always fires. The exact policy fires only on
// the configured day counts; the window policy fires on every day count
// at or below the largest milestone.
func (m Milestones) Match(days int) bool {
	if days < 0 {
		return true
	}
	if m.policy == config.PolicyWindow {
		return days <= m.max
	}
	return m.days[days]
}
