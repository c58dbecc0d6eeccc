package model

import (
	"sort"
)

// Section is a named, ordered group of questions.
type Section struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Question is a single multiple-choice question as delivered by the exam API.
// ID is durable across the exam; QuestionID is the display order inside its section.
type Question struct {
	ID          int               `json:"id"`
	SectionID   int               `json:"section_id"`
	SectionName string            `json:"section_name"`
	QuestionID  int               `json:"question_id"`
	Text        string            `json:"question"`
	Options     map[string]string `json:"options"`
}

// OptionLabels returns the option keys in label order (A, B, C, D).
func (q *Question) OptionLabels() []string {
	labels := make([]string, 0, len(q.Options))
	for k := range q.Options {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// HasOption reports whether label is one of the question's option keys.
func (q *Question) HasOption(label string) bool {
	_, ok := q.Options[label]
	return ok
}
