package skill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/soyeahso/collig/internal/logging"
)

// NoneSentinel is the classifier's answer when no skill fits.
const NoneSentinel = "None"

// Info is the roster entry a Classifier sees.
type Info struct {
	Name        string
	Description string
	Triggers    []string
}

// Classifier picks a skill name for a message, or NoneSentinel.
type Classifier interface {
	Classify(ctx context.Context, roster []Info, message string) (string, error)
}

// Registry is the ordered collection of registered skills.
type Registry struct {
	mu         sync.RWMutex
	skills     []Skill
	classifier Classifier
	log        *logging.Logger
}

// NewRegistry creates an empty registry. classifier may be nil, in which
// case Find uses keyword matching only.
func NewRegistry(classifier Classifier, log *logging.Logger) *Registry {
	return &Registry{
		classifier: classifier,
		log:        log.Sub("skills"),
	}
}

// SetClassifier replaces the classifier. nil disables it.
func (r *Registry) SetClassifier(c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifier = c
}

// Register appends s. Duplicate names are kept; lookups by name return
// the most recent registration.
func (r *Registry) Register(s Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.skills {
		if existing.Name() == s.Name() {
			r.log.Warn().Str("skill", s.Name()).Msg("skill registered twice; latest wins")
			break
		}
	}
	r.skills = append(r.skills, s)
	r.log.Debug().Str("skill", s.Name()).Msg("registered skill")
}

// Skills returns the registered skills in registration order.
func (r *Registry) Skills() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, len(r.skills))
	copy(out, r.skills)
	return out
}

// Get returns the last skill registered under name.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.skills) - 1; i >= 0; i-- {
		if r.skills[i].Name() == name {
			return r.skills[i], true
		}
	}
	return nil, false
}

// Roster describes every registered skill for classification.
func (r *Registry) Roster() []Info {
	skills := r.Skills()
	out := make([]Info, 0, len(skills))
	for _, s := range skills {
		out = append(out, Info{Name: s.Name(), Description: s.Description(), Triggers: s.Triggers()})
	}
	return out
}

// Find resolves message to a skill. The classifier is consulted first.
// A classifier error, a "None" answer, or an answer naming no registered
// skill all fall back to keyword matching.
func (r *Registry) Find(ctx context.Context, message string) Skill {
	r.mu.RLock()
	classifier := r.classifier
	r.mu.RUnlock()

	if classifier != nil {
		name, err := classifier.Classify(ctx, r.Roster(), message)
		switch {
		case errors.Is(err, ErrClassifierDisabled):
		case err != nil:
			r.log.Debug().Err(err).Msg("intent classification failed; falling back to keywords")
		default:
			if s := r.byClassifiedName(name); s != nil {
				return s
			}
		}
	}
	return r.MatchKeywords(message)
}

// byClassifiedName maps a classifier answer to a registered skill. Quotes,
// trailing punctuation and letter case are ignored.
func (r *Registry) byClassifiedName(answer string) Skill {
	name := CleanAnswer(answer)
	if name == "" || strings.EqualFold(name, NoneSentinel) {
		return nil
	}
	if s, ok := r.Get(name); ok {
		return s
	}
	for _, s := range r.Skills() {
		if strings.EqualFold(s.Name(), name) {
			return s
		}
	}
	r.log.Debug().Str("answer", answer).Msg("classifier named an unknown skill; falling back to keywords")
	return nil
}

// CleanAnswer strips the wrapping a model tends to add around a bare name.
func CleanAnswer(answer string) string {
	const quotes = "\"'`*"
	name := strings.TrimLeft(strings.TrimSpace(answer), quotes)
	return strings.TrimSpace(strings.TrimRight(name, quotes+".!"))
}

// MatchKeywords returns the first skill, in registration order, with a
// trigger contained in the lowercased message.
func (r *Registry) MatchKeywords(message string) Skill {
	msg := strings.ToLower(message)
	for _, s := range r.Skills() {
		for _, trigger := range s.Triggers() {
			if trigger != "" && strings.Contains(msg, trigger) {
				return s
			}
		}
	}
	return nil
}

// Execute runs s with the merged context {"message"} ∪ shared ∪ runtime.
// Errors and panics are converted into an error Result.
func (r *Registry) Execute(ctx context.Context, s Skill, message string, shared, runtime map[string]any) (result Result) {
	exec, ok := s.(Executor)
	if !ok {
		return Errorf("Error executing skill '%s': %s", s.Name(), "skill has no direct entry point")
	}

	c := Context{MessageKey: message}
	for k, v := range shared {
		c[k] = v
	}
	for k, v := range runtime {
		c[k] = v
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Str("skill", s.Name()).Interface("panic", p).Msg("skill panicked")
			result = Errorf("Error executing skill '%s': %v", s.Name(), p)
		}
	}()

	res, err := exec.Execute(ctx, c)
	if err != nil {
		r.log.Warn().Err(err).Str("skill", s.Name()).Msg("skill failed")
		return Errorf("Error executing skill '%s': %v", s.Name(), err)
	}
	return res
}

// Tools collects tools from every ToolProvider in registration order.
// A tool name registered later replaces an earlier one in place.
func (r *Registry) Tools() []Tool {
	var out []Tool
	index := map[string]int{}
	for _, s := range r.Skills() {
		tp, ok := s.(ToolProvider)
		if !ok {
			continue
		}
		for _, t := range tp.Tools() {
			if i, seen := index[t.Name]; seen {
				out[i] = t
				continue
			}
			index[t.Name] = len(out)
			out = append(out, t)
		}
	}
	return out
}

// Missing names a required config key a skill lacks.
type Missing struct {
	Skill string
	Key   string
}

func (m Missing) String() string { return fmt.Sprintf("%s: %s", m.Skill, m.Key) }

// MissingConfig reports required keys lookup cannot supply.
func (r *Registry) MissingConfig(lookup func(string) string) []Missing {
	var out []Missing
	for _, s := range r.Skills() {
		for _, key := range s.RequiredConfig() {
			if strings.TrimSpace(lookup(key)) == "" {
				out = append(out, Missing{Skill: s.Name(), Key: key})
			}
		}
	}
	return out
}
