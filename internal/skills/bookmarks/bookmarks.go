// Package bookmarks saves URLs with descriptions and tags.
package bookmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/soyeahso/collig/internal/store"
)

const stateLastIDs = "bookmarks.last_ids"

// Store is the persistence the skill needs.
type Store interface {
	Add(url, description, tags string) (*store.Bookmark, error)
	List(limit int) ([]store.Bookmark, error)
	Search(query string, limit int) ([]store.Bookmark, error)
	Delete(ids ...string) (int, error)
}

// Skill is the Bookmarks skill.
type Skill struct {
	skill.Base
	bookmarks Store
}

func New(bookmarks Store) *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "Bookmarks",
			SkillDescription: "Manages bookmarks (URLs) with descriptions, tags and search.",
			SkillTriggers:    []string{"bookmark", "save link", "save this url", "my links"},
		},
		bookmarks: bookmarks,
	}
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{
		{
			Name:        "add_bookmark",
			Description: "Save a new bookmark. tags is an optional comma-separated list (e.g. \"coding, go\").",
			Schema: `{"type":"object","properties":{"url":{"type":"string"},"description":{"type":"string"},` +
				`"tags":{"type":"string"}},"required":["url","description"]}`,
			Fn: s.add,
		},
		{
			Name:        "list_bookmarks",
			Description: "List the 10 most recent bookmarks.",
			Schema:      skill.EmptySchema,
			Fn:          s.list,
		},
		{
			Name:        "search_bookmarks",
			Description: "Search bookmarks by URL, description or tags.",
			Schema:      `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
			Fn:          s.search,
		},
		{
			Name:        "delete_bookmarks",
			Description: "Delete bookmarks by their index number (e.g., [1, 2]) from the most recent 'list_bookmarks' output.",
			Schema:      `{"type":"object","properties":{"indices":{"type":"array","items":{"type":"integer"}}},"required":["indices"]}`,
			Fn:          s.delete,
		},
	}
}

func (s *Skill) add(_ context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		URL         string `json:"url"`
		Description string `json:"description"`
		Tags        string `json:"tags"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.URL) == "" {
		return "A URL is required to save a bookmark.", nil
	}
	if _, err := s.bookmarks.Add(in.URL, in.Description, in.Tags); err != nil {
		return fmt.Sprintf("Error saving bookmark: %v", err), nil
	}
	return "✅ Bookmark saved: " + in.URL, nil
}

func (s *Skill) list(ctx context.Context, _ json.RawMessage) (string, error) {
	recent, err := s.bookmarks.List(10)
	if err != nil {
		return fmt.Sprintf("Error listing bookmarks: %v", err), nil
	}
	ids := make([]string, len(recent))
	for i, b := range recent {
		ids[i] = b.ID
	}
	skill.StateFrom(ctx).Set(stateLastIDs, ids)

	if len(recent) == 0 {
		return "No bookmarks found.", nil
	}
	out := []string{"Recent Bookmarks:"}
	for i, b := range recent {
		out = append(out, fmt.Sprintf("%d. [%s] - %s (Tags: %s)", i+1, b.URL, describe(b), b.Tags))
	}
	return strings.Join(out, "\n"), nil
}

func (s *Skill) search(_ context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	found, err := s.bookmarks.Search(in.Query, 5)
	if err != nil {
		return fmt.Sprintf("Error searching bookmarks: %v", err), nil
	}
	if len(found) == 0 {
		return "No matching bookmarks found.", nil
	}
	out := []string{fmt.Sprintf("Found %d matches for '%s':", len(found), in.Query)}
	for _, b := range found {
		out = append(out, fmt.Sprintf("- [%s] %s", b.URL, describe(b)))
	}
	return strings.Join(out, "\n"), nil
}

func (s *Skill) delete(ctx context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Indices []int `json:"indices"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	st := skill.StateFrom(ctx)
	last := st.StringSlice(stateLastIDs)
	if len(last) == 0 {
		return "I don't have a recent list of bookmarks to delete from. Please call 'list_bookmarks' first.", nil
	}
	ids, good, _ := skill.PickIndices(last, in.Indices)
	if len(ids) == 0 {
		return "No valid indices provided.", nil
	}
	if _, err := s.bookmarks.Delete(ids...); err != nil {
		return fmt.Sprintf("Error deleting bookmarks: %v", err), nil
	}
	st.Delete(stateLastIDs)
	return fmt.Sprintf("Deleted bookmarks at indices: %v", good), nil
}

func describe(b store.Bookmark) string {
	if b.Description == "" {
		return "No description"
	}
	return b.Description
}
