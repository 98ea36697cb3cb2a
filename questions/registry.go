package questions

import (
	"fmt"
	"sort"

	"github.com/mbolis/survey-app/model"
	"github.com/mbolis/survey-app/store"
)

// FallbackTemplate renders questions of unregistered types.
const FallbackTemplate = "take_survey/default.html"

type Entry struct {
	Handler  Handler
	Template string
}

// Registry maps question types to handlers and templates. It is built once
// and never mutated, so it is safe for concurrent use.
type Registry struct {
	entries map[model.QuestionType]Entry
}

func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[model.QuestionType]Entry, len(entries))}
	for _, e := range entries {
		if e.Handler == nil {
			return nil, fmt.Errorf("nil handler for template %q", e.Template)
		}
		tag := e.Handler.Type()
		if _, dup := r.entries[tag]; dup {
			return nil, fmt.Errorf("question type %s registered twice", tag)
		}
		if e.Template == "" {
			return nil, fmt.Errorf("question type %s has no template", tag)
		}
		r.entries[tag] = e
	}
	return r, nil
}

// Default registers every built-in question type.
func Default(answers store.TextAnswers) (*Registry, error) {
	return NewRegistry(
		Entry{Describe{}, "take_survey/DESC.html"},
		Entry{NewTextHandler(answers), "take_survey/TEXT.html"},
	)
}

// Resolve never fails: unknown types get a handler that renders and stores nothing.
func (r *Registry) Resolve(tag model.QuestionType) Handler {
	if e, ok := r.entries[tag]; ok {
		return e.Handler
	}
	return nullHandler{tag}
}

func (r *Registry) Template(tag model.QuestionType) string {
	if e, ok := r.entries[tag]; ok {
		return e.Template
	}
	return FallbackTemplate
}

func (r *Registry) Types() []model.QuestionType {
	types := make([]model.QuestionType, 0, len(r.entries))
	for tag := range r.entries {
		types = append(types, tag)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Validate checks that every mapped template, fallback included, exists.
func (r *Registry) Validate(hasTemplate func(name string) bool) error {
	if !hasTemplate(FallbackTemplate) {
		return fmt.Errorf("missing fallback template %q", FallbackTemplate)
	}
	for _, tag := range r.Types() {
		name := r.entries[tag].Template
		if !hasTemplate(name) {
			return fmt.Errorf("question type %s: missing template %q", tag, name)
		}
	}
	return nil
}
