package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCatalog is returned by Validate for a catalog whose ids collide.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the immutable description of one exam instance: its sections and questions.
type Catalog struct {
	TestID          int       `json:"test_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Sections        []Section `json:"sections"`
}

// Normalize fills the section back-references on every question and assigns
// display ids to questions that arrived without one, using the lowest ids not
// already taken within the section.
func (c *Catalog) Normalize() {
	for si := range c.Sections {
		sec := &c.Sections[si]

		used := make(map[int]bool, len(sec.Questions))
		for _, q := range sec.Questions {
			if q.QuestionID != 0 {
				used[q.QuestionID] = true
			}
		}

		next := 1
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			q.SectionID = sec.ID
			q.SectionName = sec.Name
			if q.QuestionID == 0 {
				for used[next] {
					next++
				}
				q.QuestionID = next
				used[next] = true
			}
		}
	}
}

// Validate rejects a catalog with a repeated section id, a repeated durable
// question id, or a repeated display id within one section.
func (c *Catalog) Validate() error {
	sections := make(map[int]bool, len(c.Sections))
	questions := make(map[int]bool, c.TotalQuestions())

	for _, sec := range c.Sections {
		if sections[sec.ID] {
			return fmt.Errorf("%w: duplicate section id %d", ErrInvalidCatalog, sec.ID)
		}
		sections[sec.ID] = true

		display := make(map[int]bool, len(sec.Questions))
		for _, q := range sec.Questions {
			if questions[q.ID] {
				return fmt.Errorf("%w: duplicate question id %d", ErrInvalidCatalog, q.ID)
			}
			questions[q.ID] = true

			if display[q.QuestionID] {
				return fmt.Errorf("%w: duplicate display id %d in section %d", ErrInvalidCatalog, q.QuestionID, sec.ID)
			}
			display[q.QuestionID] = true
		}
	}
	return nil
}

// Duration returns the configured exam duration, or fallback when the catalog has none.
func (c *Catalog) Duration(fallback time.Duration) time.Duration {
	if c.DurationMinutes > 0 {
		return time.Duration(c.DurationMinutes) * time.Minute
	}
	return fallback
}

// TotalQuestions counts questions across all sections.
func (c *Catalog) TotalQuestions() int {
	n := 0
	for _, s := range c.Sections {
		n += len(s.Questions)
	}
	return n
}

// QuestionIDs returns every durable question id in catalog order.
func (c *Catalog) QuestionIDs() []int {
	ids := make([]int, 0, c.TotalQuestions())
	for _, s := range c.Sections {
		for _, q := range s.Questions {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// FindSection looks up a section by id.
func (c *Catalog) FindSection(sectionID int) (*Section, bool) {
	for i := range c.Sections {
		if c.Sections[i].ID == sectionID {
			return &c.Sections[i], true
		}
	}
	return nil, false
}

// FindQuestion looks up a question by its section and display id.
func (c *Catalog) FindQuestion(sectionID, questionID int) (*Question, bool) {
	sec, ok := c.FindSection(sectionID)
	if !ok {
		return nil, false
	}
	for i := range sec.Questions {
		if sec.Questions[i].QuestionID == questionID {
			return &sec.Questions[i], true
		}
	}
	return nil, false
}

// QuestionByID looks up a question by its durable id.
func (c *Catalog) QuestionByID(id int) (*Question, bool) {
	for si := range c.Sections {
		for qi := range c.Sections[si].Questions {
			if c.Sections[si].Questions[qi].ID == id {
				return &c.Sections[si].Questions[qi], true
			}
		}
	}
	return nil, false
}

// First returns the position of the first question of the first non-empty section.
func (c *Catalog) First() (Position, bool) {
	for _, s := range c.Sections {
		if len(s.Questions) > 0 {
			return Position{SectionID: s.ID, QuestionID: s.Questions[0].QuestionID}, true
		}
	}
	return Position{}, false
}
