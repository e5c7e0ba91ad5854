package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var stops = []string{"Town Centre", "High St", "Mill End", "High Lane"}

func TestFilterIsCaseInsensitiveSubstring(t *testing.T) {
	s := New(nil)
	s.SetCandidates(stops)

	s.Type("HIGH")
	assert.True(t, s.PopoverOpen())
	assert.Equal(t, []string{"High St", "High Lane"}, s.Visible())

	s.Type("end")
	assert.Equal(t, []string{"Mill End"}, s.Visible())

	s.Type("")
	assert.Equal(t, stops, s.Visible())
}

func TestSelectNotifiesOnceAndCloses(t *testing.T) {
	var selected []string
	s := New(func(candidate string) { selected = append(selected, candidate) })
	s.SetCandidates(stops)

	s.Type("mill")
	assert.True(t, s.Select("Mill End"))

	assert.Equal(t, []string{"Mill End"}, selected)
	assert.Equal(t, "Mill End", s.Query())
	assert.False(t, s.PopoverOpen())
	assert.Nil(t, s.Visible())
}

func TestSelectUnknownCandidateIgnored(t *testing.T) {
	called := false
	s := New(func(string) { called = true })
	s.SetCandidates(stops)

	assert.False(t, s.Select("Low St"))
	assert.False(t, called)
}

func TestExternalValueWins(t *testing.T) {
	s := New(nil)
	s.SetCandidates(stops)

	s.Type("hig")
	s.SetValue("")
	assert.Equal(t, "", s.Query())

	s.Type("hig")
	s.SetValue("Town Centre")
	assert.Equal(t, "Town Centre", s.Query())
}

func TestEmptyCandidatesSuppressPopover(t *testing.T) {
	s := New(nil)
	s.Focus()

	assert.False(t, s.PopoverOpen())
	assert.Equal(t, []string{}, s.View().Options)

	s.SetCandidates(stops)
	s.Type("zzz")
	assert.False(t, s.PopoverOpen())
}

func TestDismiss(t *testing.T) {
	s := New(nil)
	s.SetCandidates(stops)
	s.Focus()
	assert.True(t, s.PopoverOpen())

	s.Dismiss()
	assert.False(t, s.PopoverOpen())
}

func TestServerFilteredDelegatesQueries(t *testing.T) {
	var queries []string
	s := NewServerFiltered(func(q string) { queries = append(queries, q) }, nil)
	s.SetCandidates([]string{"42: Town - Mill", "7: Bury - Bolton"})

	s.Focus()
	s.Type("4")
	s.Type("42")

	assert.Equal(t, []string{"", "4", "42"}, queries)
	assert.Equal(t, []string{"42: Town - Mill", "7: Bury - Bolton"}, s.Visible())
}
