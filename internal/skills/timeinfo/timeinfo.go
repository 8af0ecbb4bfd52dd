// Package timeinfo tells the current date and time.
package timeinfo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/soyeahso/collig/internal/skill"
)

// Layout is the format of get_current_time's answer.
const Layout = "Monday, January 02, 2006 15:04:05"

// Skill is the Time Teller.
type Skill struct {
	skill.Base
	now func() time.Time
}

// New creates the skill.
func New() *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "Time Teller",
			SkillDescription: "Tells the current date and time.",
			SkillTriggers:    []string{"time", "clock", "what time", "date", "day", "what's the date", "what is the date"},
		},
		now: time.Now,
	}
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{{
		Name:        "get_current_time",
		Description: "Returns the current local date and time.",
		Schema:      skill.EmptySchema,
		Fn: func(context.Context, json.RawMessage) (string, error) {
			return s.now().Format(Layout), nil
		},
	}}
}
