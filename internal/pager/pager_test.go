package pager

import (
	"context"
	"errors"
	"testing"

	"github.com/abhisek/learnpath/internal/course"
	"github.com/abhisek/learnpath/internal/courseapi"
)

type fakeSource struct {
	resp      *courseapi.PagesResponse
	err       error
	calls     int
	lastRole  course.Role
	lastID    string
	pageReads int
}

func (f *fakeSource) Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*courseapi.PagesResponse, error) {
	f.calls++
	f.lastRole = role
	f.lastID = subtopicID
	return f.resp, f.err
}

func (f *fakeSource) Page(ctx context.Context, pageID string) (*course.Page, error) {
	f.pageReads++
	return &course.Page{ID: pageID}, nil
}

func threePages() *courseapi.PagesResponse {
	return &courseapi.PagesResponse{
		Pages: []course.Page{
			{ID: "p3", Number: 3},
			{ID: "p1", Number: 1},
			{ID: "p2", Number: 2},
		},
		Objectives: []course.LearningObjective{{ID: 1, Text: "Add fractions"}},
	}
}

func TestFetchEmptySubtopic(t *testing.T) {
	src := &fakeSource{resp: threePages()}
	_, err := Fetch(context.Background(), src, Request{})
	if !errors.Is(err, ErrNoSubtopic) {
		t.Fatalf("err = %v, want ErrNoSubtopic", err)
	}
	if src.calls != 0 {
		t.Errorf("calls = %d, want 0", src.calls)
	}
}

func TestFetchOrdersPagesAndMapsOrdinals(t *testing.T) {
	src := &fakeSource{resp: threePages()}
	r, err := Fetch(context.Background(), src, Request{SubtopicID: "S1", Role: course.RoleStudent, StudentID: "stu"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if src.lastRole != course.RoleStudent || src.lastID != "S1" {
		t.Errorf("request = (%q, %q), want (S1, S)", src.lastID, src.lastRole)
	}

	want := []string{"p1", "p2", "p3"}
	for i, id := range want {
		if r.Pages[i].ID != id {
			t.Errorf("Pages[%d] = %q, want %q", i, r.Pages[i].ID, id)
		}
		if r.index[i] != id {
			t.Errorf("index[%d] = %q, want %q", i, r.index[i], id)
		}
	}
	if src.resp.Pages[0].ID != "p3" {
		t.Error("Fetch reordered the response in place")
	}
}

func TestFetchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), &fakeSource{err: boom}, Request{SubtopicID: "S1"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestApplySelectsFirstPage(t *testing.T) {
	r, _ := Fetch(context.Background(), &fakeSource{resp: threePages()}, Request{SubtopicID: "S1"})

	var s State
	s.Show(2, &course.Page{ID: "stale"})
	s.Apply(r)

	if s.Ordinal() != 0 {
		t.Errorf("Ordinal() = %d, want 0", s.Ordinal())
	}
	if s.Current() == nil || s.Current().ID != "p1" {
		t.Fatalf("Current() = %v, want p1", s.Current())
	}
	if !s.ShowObjectives() {
		t.Error("ShowObjectives() = false on first page")
	}
	if s.HasPrev() {
		t.Error("HasPrev() = true on first page")
	}
	if !s.HasNext() {
		t.Error("HasNext() = false on first of three pages")
	}
	if s.OnLastPage() {
		t.Error("OnLastPage() = true on first of three pages")
	}
}

func TestApplyEmptySubtopic(t *testing.T) {
	r, _ := Fetch(context.Background(), &fakeSource{resp: &courseapi.PagesResponse{}}, Request{SubtopicID: "S1"})

	var s State
	s.Apply(r)

	if s.Current() != nil {
		t.Errorf("Current() = %v, want nil", s.Current())
	}
	if !s.NoContent() {
		t.Error("NoContent() = false for an empty subtopic")
	}
	if !s.OnLastPage() {
		t.Error("OnLastPage() = false for an empty subtopic")
	}
}

func TestLookupShowRoundTrip(t *testing.T) {
	r, _ := Fetch(context.Background(), &fakeSource{resp: threePages()}, Request{SubtopicID: "S1"})
	var s State
	s.Apply(r)
	initial := s.Current().ID

	id, ok := s.Lookup(0)
	if !ok || id != initial {
		t.Errorf("Lookup(0) = (%q, %v), want (%q, true)", id, ok, initial)
	}

	id, _ = s.Lookup(2)
	s.Show(2, &course.Page{ID: id, Number: 3})
	if s.Current().ID != "p3" || !s.OnLastPage() {
		t.Errorf("after Show(2): current = %q, last = %v", s.Current().ID, s.OnLastPage())
	}
	if s.ShowObjectives() {
		t.Error("ShowObjectives() = true past the first page")
	}
}

func TestShowMissing(t *testing.T) {
	r, _ := Fetch(context.Background(), &fakeSource{resp: threePages()}, Request{SubtopicID: "S1"})
	var s State
	s.Apply(r)

	if _, ok := s.Lookup(7); ok {
		t.Fatal("Lookup(7) found a page")
	}
	err := s.ShowMissing(7)
	if !errors.Is(err, ErrNoPage) {
		t.Errorf("err = %v, want ErrNoPage", err)
	}
	if s.Ordinal() != 7 {
		t.Errorf("Ordinal() = %d, want 7", s.Ordinal())
	}
	if s.Current() != nil || !s.NoContent() {
		t.Error("stale content still visible after ShowMissing")
	}
}

func TestResetAndZeroValue(t *testing.T) {
	var s State
	if s.Loaded() || s.NoContent() || s.Current() != nil {
		t.Error("zero State is not empty")
	}

	r, _ := Fetch(context.Background(), &fakeSource{resp: threePages()}, Request{SubtopicID: "S1"})
	s.Apply(r)
	s.Reset()
	if s.Loaded() || s.Len() != 0 {
		t.Errorf("after Reset: loaded = %v, len = %d", s.Loaded(), s.Len())
	}
}
