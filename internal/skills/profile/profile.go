// Package profile remembers facts about the user.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/soyeahso/collig/internal/store"
)

// Store is the persistence the skill needs.
type Store interface {
	Set(key, value, category string) error
	Get(key string) (*store.ProfileEntry, error)
	Search(query string, limit int) ([]store.ProfileEntry, error)
	All() ([]store.ProfileEntry, error)
}

// Skill is the Personal Profile skill.
type Skill struct {
	skill.Base
	profile Store
}

func New(profile Store) *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "Personal Profile",
			SkillDescription: "Stores and retrieves personal information about the user (location, preferences, habits, etc.).",
			SkillTriggers:    []string{"my name is", "my location", "about me", "do you know my", "what is my"},
		},
		profile: profile,
	}
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{
		{
			Name: "set_personal_info",
			Description: "Save personal information about the user. Use this when the user says \"set my location to X\" or \"my name is Y\". " +
				"Saving an existing key replaces its value.",
			Schema: `{"type":"object","properties":{"key":{"type":"string","description":"Attribute name, e.g. location"},` +
				`"value":{"type":"string"},"category":{"type":"string","description":"e.g. identity, location, preference"}},"required":["key","value"]}`,
			Fn: s.set,
		},
		{
			Name:        "get_personal_info",
			Description: "Retrieve personal information about the user. Use this when the user asks \"what is my location?\" or \"do you know my name?\".",
			Schema:      `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
			Fn:          s.get,
		},
		{
			Name:        "list_personal_info",
			Description: "List everything stored in the user's profile.",
			Schema:      skill.EmptySchema,
			Fn:          s.list,
		},
	}
}

func (s *Skill) set(_ context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		Category string `json:"category"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Key) == "" {
		return "A key is required to save personal info.", nil
	}
	if err := s.profile.Set(in.Key, in.Value, in.Category); err != nil {
		return fmt.Sprintf("Error saving personal info: %v", err), nil
	}
	return fmt.Sprintf("✅ Personal info updated: %s = %s", strings.TrimSpace(in.Key), in.Value), nil
}

func (s *Skill) get(_ context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}

	// An exact key wins over a full-text match.
	exact, err := s.profile.Get(in.Query)
	if err != nil {
		return fmt.Sprintf("Error retrieving personal info: %v", err), nil
	}
	var found []store.ProfileEntry
	if exact != nil {
		found = []store.ProfileEntry{*exact}
	} else if found, err = s.profile.Search(in.Query, 3); err != nil {
		return fmt.Sprintf("Error retrieving personal info: %v", err), nil
	}
	if len(found) == 0 {
		return fmt.Sprintf("I don't have any information about '%s' in your profile.", in.Query), nil
	}
	return "Here is what I found in your profile:\n" + format(found), nil
}

func (s *Skill) list(context.Context, json.RawMessage) (string, error) {
	all, err := s.profile.All()
	if err != nil {
		return fmt.Sprintf("Error retrieving personal info: %v", err), nil
	}
	if len(all) == 0 {
		return "Your profile is empty.", nil
	}
	return "Your profile:\n" + format(all), nil
}

func format(entries []store.ProfileEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s: %s\nCategory: %s", e.Key, e.Value, e.Category)
	}
	return strings.Join(parts, "\n---\n")
}
