package search

import (
	"roster/internal/member/models"
)

// fieldPlan records what the substrate can answer natively for a field and
// which match mode applies when a criterion does not pick one.
type fieldPlan struct {
	defaultMatch models.MatchMode
	exactNative  bool
	prefixNative bool
}

var fieldPlans = map[models.Field]fieldPlan{
	models.FieldPersonID:    {models.MatchExact, true, true},
	models.FieldMemberType:  {models.MatchExact, true, false},
	models.FieldTable:       {models.MatchExact, true, false},
	models.FieldVotingPlace: {models.MatchPrefix, true, true},
	models.FieldLeader:      {models.MatchPrefix, true, true},
	models.FieldFirstName:   {models.MatchContains, true, true},
	models.FieldLastName:    {models.MatchContains, true, true},
	models.FieldAddress:     {models.MatchContains, true, true},
	models.FieldName:        {models.MatchContains, false, false},
	models.FieldPhone:       {models.MatchDigits, false, false},
	models.FieldNotes:       {models.MatchContains, false, false},
}

// Step is one strategy in a search plan.
type Step struct {
	Strategy string       `json:"strategy"`
	Field    models.Field `json:"field,omitempty"`
	Value    string       `json:"value"`
	Native   bool         `json:"native"`
}

type plannedStep struct {
	Step
	strategy Strategy
}

// effectiveMatch resolves MatchAuto to the field's default.
func effectiveMatch(c models.Criterion) models.MatchMode {
	if c.Match != models.MatchAuto {
		return c.Match
	}
	return fieldPlans[c.Field].defaultMatch
}

// planCriterion picks the cheapest strategy that satisfies c exactly. Intents
// the substrate cannot express fall back to a scan, never to a skipped filter.
func planCriterion(c models.Criterion) plannedStep {
	fp := fieldPlans[c.Field]
	var s Strategy
	switch effectiveMatch(c) {
	case models.MatchExact:
		if fp.exactNative {
			s = exactStrategy{field: c.Field, value: c.Value}
		} else {
			s = scanStrategy{name: StrategyFullScanExact, match: equalsPredicate(c.Field, c.Value)}
		}
	case models.MatchPrefix:
		if fp.prefixNative {
			s = prefixRangeStrategy{field: c.Field, prefix: c.Value}
		} else {
			s = scanStrategy{name: StrategyFullScanPrefix, match: prefixPredicate(c.Field, c.Value)}
		}
	case models.MatchDigits:
		s = scanStrategy{name: StrategyDigitMatch, match: digitsPredicate(c.Value)}
	default:
		s = scanStrategy{name: StrategyFullScanSubstring, match: containsPredicate(c.Field, c.Value)}
	}
	return plannedStep{
		Step:     Step{Strategy: s.Name(), Field: c.Field, Value: c.Value, Native: s.Native()},
		strategy: s,
	}
}

func planText(text string) plannedStep {
	s := scanStrategy{name: StrategyMultiFieldOr, match: multiFieldOr(text)}
	return plannedStep{
		Step:     Step{Strategy: s.Name(), Value: text},
		strategy: s,
	}
}

// plan expects a normalized, validated request.
func plan(req *models.SearchRequest) []plannedStep {
	steps := make([]plannedStep, 0, len(req.Criteria)+1)
	for _, c := range req.Criteria {
		steps = append(steps, planCriterion(c))
	}
	if req.Text != "" {
		steps = append(steps, planText(req.Text))
	}
	return steps
}
