// Package selector models a searchable single-selection input: a text box
// over a list of candidates with a popover that opens while typing.
package selector

import (
	"github.com/travigo/busdelay/pkg/util"
	"golang.org/x/exp/slices"
)

type Selector struct {
	candidates []string
	query      string
	open       bool

	// ServerFiltered delegates filtering upstream: every keystroke is
	// reported to OnQuery and the candidate list is shown as supplied.
	ServerFiltered bool

	OnQuery  func(query string)
	OnSelect func(candidate string)
}

func New(onSelect func(candidate string)) *Selector {
	return &Selector{OnSelect: onSelect}
}

// NewServerFiltered builds a selector whose candidates come from a remote search
func NewServerFiltered(onQuery func(query string), onSelect func(candidate string)) *Selector {
	return &Selector{ServerFiltered: true, OnQuery: onQuery, OnSelect: onSelect}
}

func (s *Selector) SetCandidates(candidates []string) {
	s.candidates = slices.Clone(candidates)
}

func (s *Selector) Candidates() []string {
	return slices.Clone(s.candidates)
}

// SetValue resynchronises the input with the owner's value, overriding
// anything typed since
func (s *Selector) SetValue(value string) {
	s.query = value
}

func (s *Selector) Query() string {
	return s.query
}

// Type replaces the input text and opens the popover
func (s *Selector) Type(text string) {
	s.query = text
	s.open = true

	if s.ServerFiltered && s.OnQuery != nil {
		s.OnQuery(text)
	}
}

// Focus opens the popover without changing the text
func (s *Selector) Focus() {
	s.open = true

	if s.ServerFiltered && s.OnQuery != nil {
		s.OnQuery(s.query)
	}
}

func (s *Selector) Dismiss() {
	s.open = false
}

// Filtered returns the candidates matching the current text
func (s *Selector) Filtered() []string {
	if s.ServerFiltered {
		return slices.Clone(s.candidates)
	}

	filtered := []string{}
	for _, candidate := range s.candidates {
		if util.ContainsFold(candidate, s.query) {
			filtered = append(filtered, candidate)
		}
	}

	return filtered
}

// PopoverOpen is false whenever there is nothing to show
func (s *Selector) PopoverOpen() bool {
	return s.open && len(s.Filtered()) > 0
}

// Visible lists what the open popover shows
func (s *Selector) Visible() []string {
	if !s.PopoverOpen() {
		return nil
	}

	return s.Filtered()
}

// Select picks a candidate, closing the popover and echoing it into the
// input. The owner is notified once; unknown candidates are ignored.
func (s *Selector) Select(candidate string) bool {
	if !slices.Contains(s.candidates, candidate) {
		return false
	}

	s.query = candidate
	s.open = false

	if s.OnSelect != nil {
		s.OnSelect(candidate)
	}

	return true
}

type View struct {
	Query      string   `json:"query" groups:"basic"`
	Open       bool     `json:"open" groups:"basic"`
	Options    []string `json:"options" groups:"basic"`
	Candidates int      `json:"candidates" groups:"detailed"`
}

func (s *Selector) View() View {
	options := s.Visible()
	if options == nil {
		options = []string{}
	}

	return View{
		Query:      s.query,
		Open:       s.PopoverOpen(),
		Options:    options,
		Candidates: len(s.candidates),
	}
}
