// Package notes saves and recalls personal notes.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/soyeahso/collig/internal/store"
)

// stateLastIDs holds the ids behind the most recent list_notes output.
const stateLastIDs = "notes.last_ids"

// Store is the persistence the skill needs.
type Store interface {
	Add(content, sessionID string) (*store.Note, error)
	Recent(limit int) ([]store.Note, error)
	Search(query string, limit int) ([]store.Note, error)
	Delete(ids ...string) (int, error)
}

// Skill is the Memory & Notes skill.
type Skill struct {
	skill.Base
	notes Store
}

func New(notes Store) *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "Memory & Notes",
			SkillDescription: "Stores and retrieves personal notes using a local full-text database.",
			SkillTriggers:    []string{"note", "remember", "memory", "what did i say"},
		},
		notes: notes,
	}
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{
		{
			Name:        "add_note",
			Description: "Save a new note, memory, or information to the personal database.",
			Schema:      `{"type":"object","properties":{"content":{"type":"string","description":"The content of the note to save."}},"required":["content"]}`,
			Fn:          s.addNote,
		},
		{
			Name:        "list_notes",
			Description: "List the 10 most recent notes.",
			Schema:      skill.EmptySchema,
			Fn:          s.listNotes,
		},
		{
			Name:        "search_notes",
			Description: "Search for information in existing notes.",
			Schema:      `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
			Fn:          s.searchNotes,
		},
		{
			Name:        "delete_notes",
			Description: "Delete notes by their index number (e.g., [1, 2]) from the most recent 'list_notes' output.",
			Schema:      `{"type":"object","properties":{"indices":{"type":"array","items":{"type":"integer"},"description":"1-based indices"}},"required":["indices"]}`,
			Fn:          s.deleteNotes,
		},
	}
}

func (s *Skill) addNote(ctx context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Content string `json:"content"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Content) == "" {
		return "Nothing to save: the note is empty.", nil
	}
	if _, err := s.notes.Add(in.Content, skill.SessionFrom(ctx)); err != nil {
		return fmt.Sprintf("❌ Failed to save note: %v", err), nil
	}
	return "✅ Saved to memory.", nil
}

func (s *Skill) listNotes(ctx context.Context, _ json.RawMessage) (string, error) {
	recent, err := s.notes.Recent(10)
	if err != nil {
		return fmt.Sprintf("❌ Failed to retrieve notes list: %v", err), nil
	}
	ids := make([]string, len(recent))
	for i, n := range recent {
		ids[i] = n.ID
	}
	skill.StateFrom(ctx).Set(stateLastIDs, ids)

	if len(recent) == 0 {
		return "You don't have any saved notes yet.", nil
	}
	var b strings.Builder
	b.WriteString("Here are your most recent notes:\n")
	for i, n := range recent {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Content)
	}
	return b.String(), nil
}

func (s *Skill) searchNotes(_ context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	found, err := s.notes.Search(in.Query, 3)
	if err != nil {
		return fmt.Sprintf("❌ Failed to search notes: %v", err), nil
	}
	if len(found) == 0 {
		return "I couldn't find any relevant notes in your memory.", nil
	}
	var b strings.Builder
	b.WriteString("Here's what I found in your notes:\n")
	for i, n := range found {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(n.Content, "\n", " "))
	}
	return b.String(), nil
}

func (s *Skill) deleteNotes(ctx context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Indices []int `json:"indices"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	st := skill.StateFrom(ctx)
	last := st.StringSlice(stateLastIDs)
	if len(last) == 0 {
		return "I don't have a recent list of notes to delete from. Please call 'list_notes' first.", nil
	}

	ids, good, bad := skill.PickIndices(last, in.Indices)
	if len(ids) == 0 {
		return "❌ Invalid note number(s). Please check the list again.", nil
	}
	if _, err := s.notes.Delete(ids...); err != nil {
		return fmt.Sprintf("❌ Failed to delete notes: %v", err), nil
	}
	// Numbering is stale once anything is removed.
	st.Delete(stateLastIDs)

	msg := fmt.Sprintf("✅ Deleted note(s): %s.", joinInts(good))
	if len(bad) > 0 {
		msg += fmt.Sprintf("\n❌ Could not find note(s): %s.", joinInts(bad))
	}
	return msg, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
