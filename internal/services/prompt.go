package services

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"alfredoptarigan/cv-screener/internal/models"
)

//go:embed rubric.toml
var rubricTOML []byte

const systemPrompt = "You are a strict recruitment screening assistant.\n" +
	"Use ONLY the provided evidence (Job Description, rubric, candidate CV & project snippets).\n" +
	"Score strictly according to the rubric, penalize missing or unclear evidence.\n" +
	"Return ONLY valid JSON. Do not include explanations outside JSON."

const userInstructions = "Score the candidate strictly against the rubric.\n" +
	"For each dimension, provide a score (1..5), rationale, and 1-3 evidence snippets.\n" +
	"Use only the supplied evidence; if missing, score low and mention it.\n" +
	"Output JSON only."

type RubricDimension struct {
	Name   string  `toml:"name"`
	Weight float64 `toml:"weight"`
}

type rubricGroup struct {
	MatchRate  string            `toml:"match_rate"`
	Feedback   string            `toml:"feedback"`
	Dimensions []RubricDimension `toml:"dimensions"`
}

// Rubric is the dimension catalogue advertised to the model in the output schema hint.
type Rubric struct {
	OverallSummary string      `toml:"overall_summary"`
	CV             rubricGroup `toml:"cv"`
	Project        rubricGroup `toml:"project"`
}

// LoadRubric parses the embedded rubric catalogue.
func LoadRubric() (*Rubric, error) {
	var r Rubric
	if err := toml.Unmarshal(rubricTOML, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rubric: %w", err)
	}
	return &r, nil
}

type PromptBuilder struct {
	rubric *Rubric
}

func NewPromptBuilder(rubric *Rubric) *PromptBuilder {
	return &PromptBuilder{rubric: rubric}
}

type dimensionHint struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Score     string  `json:"score"`
	Rationale string  `json:"rationale"`
	Evidence  []any   `json:"evidence"`
}

type cvHint struct {
	MatchRate  string          `json:"match_rate"`
	Feedback   string          `json:"feedback"`
	Dimensions []dimensionHint `json:"dimensions"`
}

type projectHint struct {
	Feedback   string          `json:"feedback"`
	Dimensions []dimensionHint `json:"dimensions"`
}

type schemaHint struct {
	CV             cvHint      `json:"cv"`
	Project        projectHint `json:"project"`
	OverallSummary string      `json:"overall_summary"`
	Risks          []string    `json:"risks"`
}

type userPayload struct {
	Instructions    string                `json:"instructions"`
	JobDescription  string                `json:"job_description"`
	RubricCV        string                `json:"rubric_cv"`
	RubricProject   string                `json:"rubric_project"`
	CVEvidence      []models.EvidenceItem `json:"cv_evidence"`
	ProjectEvidence []models.EvidenceItem `json:"project_evidence"`
	OutputSchema    schemaHint            `json:"output_schema"`
}

func dimensionHints(dims []RubricDimension) []dimensionHint {
	out := make([]dimensionHint, len(dims))
	for i, d := range dims {
		out[i] = dimensionHint{Name: d.Name, Weight: d.Weight, Score: "1..5", Rationale: "...", Evidence: []any{}}
	}
	return out
}

// BuildMessages returns the system instruction and the JSON-encoded user message.
func (pb *PromptBuilder) BuildMessages(ev Evidence) ([]ChatMessage, error) {
	cvEvidence := ev.CV
	if cvEvidence == nil {
		cvEvidence = []models.EvidenceItem{}
	}
	projectEvidence := ev.Project
	if projectEvidence == nil {
		projectEvidence = []models.EvidenceItem{}
	}

	payload := userPayload{
		Instructions:    userInstructions,
		JobDescription:  ev.JobDescription,
		RubricCV:        ev.RubricCV,
		RubricProject:   ev.RubricProject,
		CVEvidence:      cvEvidence,
		ProjectEvidence: projectEvidence,
		OutputSchema: schemaHint{
			CV: cvHint{
				MatchRate:  pb.rubric.CV.MatchRate,
				Feedback:   pb.rubric.CV.Feedback,
				Dimensions: dimensionHints(pb.rubric.CV.Dimensions),
			},
			Project: projectHint{
				Feedback:   pb.rubric.Project.Feedback,
				Dimensions: dimensionHints(pb.rubric.Project.Dimensions),
			},
			OverallSummary: pb.rubric.OverallSummary,
			Risks:          []string{},
		},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode prompt: %w", err)
	}

	return []ChatMessage{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: string(bytes.TrimRight(buf.Bytes(), "\n"))},
	}, nil
}
