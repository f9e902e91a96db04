package extract

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/market-report-cli/internal/model"
)

// HeadingState is the heading context carried from line to line within one
// report. The zero value is the state at the start of a report.
type HeadingState struct {
	// Text is the title-cased heading, e.g. "Bred Cows".
	Text string
	// PerHead is set when lots under this heading are quoted per head.
	PerHead bool
	// Denied is set for non-cattle sections (sheep, goats, horses).
	Denied bool
}

// Outcome is what the walker did with one line.
type Outcome int

const (
	OutcomeNoise Outcome = iota
	OutcomeHeading
	OutcomeSale
	OutcomeUnmatched
	OutcomeDenied
	OutcomeStop
)

func (o Outcome) String() string {
	return [...]string{"noise", "heading", "sale", "unmatched", "denied", "stop"}[o]
}

// StepResult is the result of walking one line.
type StepResult struct {
	Outcome Outcome
	Records []model.SaleRecord
}

// Result is the outcome of walking a whole report.
type Result struct {
	Records []model.SaleRecord
	// Unmatched holds sale-shaped lines nothing could be extracted from.
	Unmatched []string
	Headings  int
	Denied    int
	Stopped   bool
}

// Walker drives classification and extraction over a report. It holds no
// per-report state and may be reused.
type Walker struct {
	rules     Rules
	extractor *Extractor
}

// NewWalker creates a Walker for the given rules.
func NewWalker(rules Rules) *Walker {
	rules = rules.withDefaults()
	return &Walker{rules: rules, extractor: NewExtractor(rules)}
}

// Rules returns the walker's rules with defaults applied.
func (w *Walker) Rules() Rules {
	return w.rules
}

// Step processes one line given the current heading state and returns the
// next state.
func (w *Walker) Step(state HeadingState, line string) (HeadingState, StepResult) {
	line = strings.TrimSpace(line)
	if line == "" {
		return state, StepResult{Outcome: OutcomeNoise}
	}
	if w.rules.IsStop(line) {
		return state, StepResult{Outcome: OutcomeStop}
	}

	tokens := w.rules.Tokens(line)
	kind := Classify(tokens, w.rules)

	if w.isDeniedHeading(tokens) {
		return HeadingState{Text: headingText(tokens), Denied: true}, StepResult{Outcome: OutcomeHeading}
	}
	if kind == Heading {
		text := headingText(tokens)
		return HeadingState{Text: text, PerHead: HeadingImpliesPerHead(text)}, StepResult{Outcome: OutcomeHeading}
	}

	if recs, v := w.extractor.match(line, state); v != verdictNone {
		if v == verdictDenied || state.Denied {
			return state, StepResult{Outcome: OutcomeDenied}
		}
		return state, StepResult{Outcome: OutcomeSale, Records: recs}
	}

	if kind != Sale {
		return state, StepResult{Outcome: OutcomeNoise}
	}
	if state.Denied {
		return state, StepResult{Outcome: OutcomeDenied}
	}

	rec, v := w.extractor.extract(tokens, state)
	switch v {
	case verdictSale:
		return state, StepResult{Outcome: OutcomeSale, Records: []model.SaleRecord{rec}}
	case verdictDenied:
		return state, StepResult{Outcome: OutcomeDenied}
	default:
		return state, StepResult{Outcome: OutcomeUnmatched}
	}
}

// Walk runs Step over every line, merging defaults under each extracted
// record. Records identical to the defaults are not emitted.
func (w *Walker) Walk(lines []string, defaults model.ReportDefaults) (Result, error) {
	var (
		res   Result
		state HeadingState
	)
	for _, line := range lines {
		var step StepResult
		state, step = w.Step(state, line)

		switch step.Outcome {
		case OutcomeStop:
			res.Stopped = true
			return res, nil
		case OutcomeHeading:
			res.Headings++
		case OutcomeDenied:
			res.Denied++
		case OutcomeUnmatched:
			res.Unmatched = append(res.Unmatched, strings.TrimSpace(line))
		case OutcomeSale:
			for _, rec := range step.Records {
				merged, err := defaults.Overlay(rec)
				if err != nil {
					return res, err
				}
				if defaults.IsDefault(merged) {
					continue
				}
				res.Records = append(res.Records, merged)
			}
		}
	}
	return res, nil
}

func (w *Walker) isDeniedHeading(tokens []string) bool {
	return len(tokens) <= w.rules.MaxHeadingTokens && !anyNumberLike(tokens) &&
		!anyCattleWord(tokens, w.rules) && w.rules.isDeniedSection(tokens)
}

func headingText(tokens []string) string {
	text := strings.Trim(strings.Join(tokens, " "), " \t:-*")
	return cases.Title(language.English).String(text)
}
