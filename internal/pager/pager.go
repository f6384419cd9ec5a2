// Package pager holds the paginated content of one subtopic: its ordered
// pages, its objectives and the ordinal to page-ID mapping used for direct
// page reads.
package pager

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
)

var (
	// ErrNoSubtopic is returned when a load is requested without a subtopic.
	ErrNoSubtopic = errors.New("no subtopic selected")

	// ErrNoPage is returned when an ordinal has no page in the mapping table.
	ErrNoPage = errors.New("no content for page")
)

// Source is the subset of courseapi.Source the pager reads from.
type Source interface {
	Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*courseapi.PagesResponse, error)
	Page(ctx context.Context, pageID string) (*course.Page, error)
}

// Request identifies a subtopic load.
type Request struct {
	SubtopicID string
	Role       course.Role
	StudentID  string
}

// Result is a fetched subtopic, ready to be applied to a State.
type Result struct {
	SubtopicID string
	Pages      []course.Page
	Objectives []course.LearningObjective

	// Masteries carries the per-student context of a student-scoped fetch.
	Masteries []course.MasteryRecord

	index map[int]string
}

// Fetch loads the pages of a subtopic. Pages are ordered by their backend
// page number and ordinal i maps to the i-th page.
func Fetch(ctx context.Context, src Source, req Request) (*Result, error) {
	if req.SubtopicID == "" {
		return nil, ErrNoSubtopic
	}

	resp, err := src.Pages(ctx, req.SubtopicID, req.Role, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("fetch pages for subtopic %s: %w", req.SubtopicID, err)
	}
	if resp == nil {
		resp = &courseapi.PagesResponse{}
	}

	pages := make([]course.Page, len(resp.Pages))
	copy(pages, resp.Pages)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Number < pages[j].Number
	})

	index := make(map[int]string, len(pages))
	for i, p := range pages {
		if p.ID != "" {
			index[i] = p.ID
		}
	}

	return &Result{
		SubtopicID: req.SubtopicID,
		Pages:      pages,
		Objectives: append([]course.LearningObjective(nil), resp.Objectives...),
		Masteries:  append([]course.MasteryRecord(nil), resp.Masteries...),
		index:      index,
	}, nil
}

// State is the pager state of the active subtopic. The zero value is an
// empty pager with nothing loaded.
type State struct {
	subtopicID string
	pages      []course.Page
	objectives []course.LearningObjective
	index      map[int]string

	ordinal int
	current *course.Page
}

// Apply installs a fetched result and selects its first page.
func (s *State) Apply(r *Result) {
	s.subtopicID = r.SubtopicID
	s.pages = r.Pages
	s.objectives = r.Objectives
	s.index = r.index
	s.ordinal = 0
	s.current = nil
	if len(s.pages) > 0 {
		first := s.pages[0]
		s.current = &first
	}
}

// Reset clears the state back to the zero value.
func (s *State) Reset() {
	*s = State{}
}

// Lookup returns the page identifier mapped to ordinal.
func (s *State) Lookup(ordinal int) (string, bool) {
	id, ok := s.index[ordinal]
	return id, ok
}

// Show makes p the visible page at ordinal.
func (s *State) Show(ordinal int, p *course.Page) {
	s.ordinal = ordinal
	if p == nil {
		s.current = nil
		return
	}
	cp := *p
	s.current = &cp
}

// ShowMissing moves the visible ordinal without content and reports
// ErrNoPage.
func (s *State) ShowMissing(ordinal int) error {
	s.ordinal = ordinal
	s.current = nil
	return fmt.Errorf("page %d of subtopic %s: %w", ordinal, s.subtopicID, ErrNoPage)
}

// Loaded reports whether a subtopic has been applied.
func (s *State) Loaded() bool { return s.subtopicID != "" }

func (s *State) SubtopicID() string { return s.subtopicID }
func (s *State) Ordinal() int       { return s.ordinal }
func (s *State) Len() int           { return len(s.pages) }

// Current returns the visible page, or nil when nothing renders.
func (s *State) Current() *course.Page { return s.current }

// NoContent reports the explicit no-content state: a subtopic is loaded
// but the visible ordinal has no page.
func (s *State) NoContent() bool { return s.Loaded() && s.current == nil }

// Pages returns a copy of the ordered pages.
func (s *State) Pages() []course.Page {
	return append([]course.Page(nil), s.pages...)
}

// Objectives returns a copy of the subtopic's objectives.
func (s *State) Objectives() []course.LearningObjective {
	return append([]course.LearningObjective(nil), s.objectives...)
}

// ShowObjectives reports whether the objectives panel belongs on the
// visible page. It is shown on the first page only.
func (s *State) ShowObjectives() bool {
	return s.ordinal == 0 && len(s.objectives) > 0
}

func (s *State) HasPrev() bool { return s.ordinal > 0 && len(s.pages) > 0 }
func (s *State) HasNext() bool { return s.ordinal < len(s.pages)-1 }

// OnLastPage reports whether the learner has reached the end of the
// subtopic. A subtopic without pages counts as finished.
func (s *State) OnLastPage() bool {
	return len(s.pages) == 0 || s.ordinal == len(s.pages)-1
}
