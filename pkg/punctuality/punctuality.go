// Package punctuality turns a PredictionResult into what the rider sees.
// Resolved, NoMatch and Pending map to mutually exclusive display states;
// Idle and Failed keep the result panel hidden.
package punctuality

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/travigo/busdelay/pkg/model"
)

type DisplayKind string

const (
	DisplayHidden     DisplayKind = "hidden"
	DisplayProcessing DisplayKind = "processing"
	DisplayOnTime     DisplayKind = "on_time"
	DisplayLate       DisplayKind = "late"
	DisplayNoMatch    DisplayKind = "no_match"
)

const (
	ProcessingMessage = "Processing..."
	OnTimeMessage     = "On time"
	NoMatchMessage    = "No journey at this time. Please try another time."
)

type Display struct {
	Kind               DisplayKind `json:"kind" groups:"basic"`
	Message            string      `json:"message,omitempty" groups:"basic"`
	Severity           string      `json:"severity,omitempty" groups:"basic"`
	ScheduledDeparture string      `json:"scheduled_departure,omitempty" groups:"basic"`
}

// Rule names a severity band. When is an expr boolean over `delay` (minutes);
// the first matching rule wins.
type Rule struct {
	Name string `yaml:"name" validate:"required"`
	When string `yaml:"when" validate:"required"`
}

var DefaultRules = []Rule{
	{Name: "on_time", When: "delay == 0"},
	{Name: "minor", When: "delay <= 5"},
	{Name: "major", When: "true"},
}

type compiledRule struct {
	name    string
	program *vm.Program
}

type Renderer struct {
	rules []compiledRule
}

func NewRenderer(rules []Rule) (*Renderer, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	renderer := &Renderer{}

	for _, rule := range rules {
		program, err := expr.Compile(rule.When, expr.Env(ruleEnvironment(0)), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("severity rule %s: %w", rule.Name, err)
		}

		renderer.rules = append(renderer.rules, compiledRule{name: rule.Name, program: program})
	}

	return renderer, nil
}

func ruleEnvironment(delay int) map[string]any {
	return map[string]any{"delay": delay}
}

func (r *Renderer) Render(result model.PredictionResult) Display {
	switch result.Status {
	case model.PredictionPending:
		return Display{Kind: DisplayProcessing, Message: ProcessingMessage}
	case model.PredictionNoMatch:
		return Display{Kind: DisplayNoMatch, Message: NoMatchMessage}
	case model.PredictionResolved:
		display := Display{
			Kind:     DisplayLate,
			Message:  LateMessage(result.DelayMinutes),
			Severity: r.Severity(result.DelayMinutes),
		}
		if result.DelayMinutes == 0 {
			display.Kind = DisplayOnTime
			display.Message = OnTimeMessage
		}
		if result.ScheduledDeparture != nil {
			display.ScheduledDeparture = result.ScheduledDeparture.String()
		}

		return display
	default:
		return Display{Kind: DisplayHidden}
	}
}

// Severity returns the name of the first rule matching delay, or "" if none do
func (r *Renderer) Severity(delay int) string {
	for _, rule := range r.rules {
		output, err := expr.Run(rule.program, ruleEnvironment(delay))
		if err != nil {
			continue
		}

		if matched, ok := output.(bool); ok && matched {
			return rule.name
		}
	}

	return ""
}

func LateMessage(minutes int) string {
	if minutes == 1 {
		return "1 minute late"
	}

	return fmt.Sprintf("%d minutes late", minutes)
}
