// Package datecalc resolves relative date phrases such as "next friday"
// or "in 3 days".
package datecalc

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/collig/internal/skill"
)

const dayLayout = "Monday, January 02, 2006"

// baseLayouts are accepted for base_date, most specific first.
var baseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var (
	inRe  = regexp.MustCompile(`\bin (\d+) (day|week|month|year)s?\b`)
	agoRe = regexp.MustCompile(`\b(\d+) (day|week|month|year)s? ago\b`)
	dayRe = regexp.MustCompile(`\b(next|this) (monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

// Skill is the Date Calculator.
type Skill struct {
	skill.Base
	now func() time.Time
}

// New creates the skill.
func New() *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "Date Calculator",
			SkillDescription: "Calculates future or past dates based on natural language queries like 'next Monday', 'in 3 days', etc.",
			SkillTriggers:    []string{"calendar", "when is", "next monday", "next week", "tomorrow", "yesterday", "days ago", "days from now"},
		},
		now: time.Now,
	}
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{{
		Name:        "calculate_date",
		Description: "Calculates a specific date based on a natural language query relative to the current date (e.g. \"next Monday\", \"in 2 weeks\").",
		Schema: `{"type":"object","properties":{` +
			`"query":{"type":"string","description":"The natural language date request"},` +
			`"base_date":{"type":"string","description":"Optional base date (ISO format preferred). Defaults to today."}` +
			`},"required":["query"]}`,
		Fn: func(_ context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Query    string `json:"query"`
				BaseDate string `json:"base_date"`
			}
			if err := skill.DecodeArgs(args, &in); err != nil {
				return "", err
			}
			current := s.now()
			if strings.TrimSpace(in.BaseDate) != "" {
				t, ok := parseBase(in.BaseDate)
				if !ok {
					return fmt.Sprintf("Error: Invalid base_date format '%s'.", in.BaseDate), nil
				}
				current = t
			}
			query := strings.ToLower(strings.TrimSpace(in.Query))
			target := Resolve(query, current)
			return fmt.Sprintf("Today is %s. Date calculation for '%s': %s",
				current.Format(dayLayout), query, target.Format(dayLayout)), nil
		},
	}}
}

func parseBase(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range baseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Resolve applies the first phrase in query that it understands to base.
// Unrecognised queries resolve to base itself.
func Resolve(query string, base time.Time) time.Time {
	query = strings.ToLower(query)

	switch {
	case strings.Contains(query, "today"):
		return base
	case strings.Contains(query, "tomorrow"):
		return base.AddDate(0, 0, 1)
	case strings.Contains(query, "yesterday"):
		return base.AddDate(0, 0, -1)
	}

	if m := dayRe.FindStringSubmatch(query); m != nil {
		target := weekdays[m[2]]
		ahead := int(target) - int(base.Weekday())
		if m[1] == "next" {
			if ahead <= 0 {
				ahead += 7
			}
		} else if ahead < 0 {
			// "this sunday" on a Monday means the coming one.
			ahead += 7
		}
		return base.AddDate(0, 0, ahead)
	}

	if m := inRe.FindStringSubmatch(query); m != nil {
		return shift(base, m[1], m[2], 1)
	}
	if m := agoRe.FindStringSubmatch(query); m != nil {
		return shift(base, m[1], m[2], -1)
	}

	switch {
	case strings.Contains(query, "next week"):
		return base.AddDate(0, 0, 7)
	case strings.Contains(query, "last week"):
		return base.AddDate(0, 0, -7)
	case strings.Contains(query, "next month"):
		return base.AddDate(0, 1, 0)
	case strings.Contains(query, "next year"):
		return base.AddDate(1, 0, 0)
	}
	return base
}

func shift(base time.Time, count, unit string, sign int) time.Time {
	n, _ := strconv.Atoi(count)
	n *= sign
	switch unit {
	case "week":
		return base.AddDate(0, 0, 7*n)
	case "month":
		return base.AddDate(0, n, 0)
	case "year":
		return base.AddDate(n, 0, 0)
	default:
		return base.AddDate(0, 0, n)
	}
}
