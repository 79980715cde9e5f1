package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Decision string

const (
	DecisionAdvance Decision = "advance"
	DecisionReview  Decision = "review"
	DecisionReject  Decision = "reject"
)

// DimensionScore is one rubric criterion as scored by the language model.
type DimensionScore struct {
	Name      string         `json:"name"`
	Weight    float64        `json:"weight"`
	Score     float64        `json:"score"`
	Rationale string         `json:"rationale"`
	Evidence  []EvidenceItem `json:"evidence"`
}

// UnmarshalJSON accepts model output where weight or score is missing, null
// or a numeric string ("4", " 0.25 "); missing and null decode as zero.
func (d *DimensionScore) UnmarshalJSON(data []byte) error {
	type plain DimensionScore
	var raw struct {
		plain
		Weight json.RawMessage `json:"weight"`
		Score  json.RawMessage `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	weight, err := lenientNumber(raw.Weight)
	if err != nil {
		return fmt.Errorf("weight: %w", err)
	}
	score, err := lenientNumber(raw.Score)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}

	*d = DimensionScore(raw.plain)
	d.Weight = weight
	d.Score = score
	return nil
}

func lenientNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
		return v, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

type CVAssessment struct {
	Feedback   string           `json:"feedback"`
	Dimensions []DimensionScore `json:"dimensions"`
}

type ProjectAssessment struct {
	Feedback   string           `json:"feedback"`
	Dimensions []DimensionScore `json:"dimensions"`
}

// LLMResult is the validated structure decoded from model output.
type LLMResult struct {
	CV             CVAssessment      `json:"cv"`
	Project        ProjectAssessment `json:"project"`
	OverallSummary string            `json:"overall_summary"`
	Risks          []string          `json:"risks"`
}

type EvaluationDetails struct {
	CVDimensions      []DimensionScore `json:"cv_dimensions"`
	ProjectDimensions []DimensionScore `json:"project_dimensions"`
	Risks             []string         `json:"risks"`
}

// EvaluationResult is derived from an LLMResult and never mutated afterwards.
type EvaluationResult struct {
	CVMatchRate     float64           `json:"cv_match_rate"`
	CVFeedback      string            `json:"cv_feedback"`
	ProjectScore    float64           `json:"project_score"`
	ProjectFeedback string            `json:"project_feedback"`
	OverallSummary  string            `json:"overall_summary"`
	Decision        Decision          `json:"decision"`
	Details         EvaluationDetails `json:"details"`
}
