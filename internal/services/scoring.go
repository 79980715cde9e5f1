package services

import (
	"math"

	"alfredoptarigan/cv-screener/internal/models"
)

// Decision thresholds.
const (
	AdvanceMatchRate = 0.75
	AdvanceProject   = 4.0
	ReviewMatchRate  = 0.55
	ReviewProject    = 3.2
)

// WeightedAverage returns sum(score*weight)/sum(weight). An empty list yields 0 and a
// zero weight sum is treated as 1.
func WeightedAverage(dims []models.DimensionScore) float64 {
	if len(dims) == 0 {
		return 0
	}
	var num, den float64
	for _, d := range dims {
		num += d.Score * d.Weight
		den += d.Weight
	}
	if den == 0 {
		den = 1
	}
	return num / den
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Decide maps the two aggregates to a decision. Nothing else is consulted.
func Decide(cvMatchRate, projectScore float64) models.Decision {
	switch {
	case cvMatchRate >= AdvanceMatchRate && projectScore >= AdvanceProject:
		return models.DecisionAdvance
	case cvMatchRate >= ReviewMatchRate && projectScore >= ReviewProject:
		return models.DecisionReview
	default:
		return models.DecisionReject
	}
}

// Aggregate derives the evaluation result from validated model output.
func Aggregate(r *models.LLMResult) *models.EvaluationResult {
	cvMatchRate := roundTo(WeightedAverage(r.CV.Dimensions)/5, 4)
	projectScore := roundTo(WeightedAverage(r.Project.Dimensions), 2)

	cvDims := r.CV.Dimensions
	if cvDims == nil {
		cvDims = []models.DimensionScore{}
	}
	projectDims := r.Project.Dimensions
	if projectDims == nil {
		projectDims = []models.DimensionScore{}
	}
	risks := r.Risks
	if risks == nil {
		risks = []string{}
	}

	return &models.EvaluationResult{
		CVMatchRate:     cvMatchRate,
		CVFeedback:      r.CV.Feedback,
		ProjectScore:    projectScore,
		ProjectFeedback: r.Project.Feedback,
		OverallSummary:  r.OverallSummary,
		Decision:        Decide(cvMatchRate, projectScore),
		Details: models.EvaluationDetails{
			CVDimensions:      cvDims,
			ProjectDimensions: projectDims,
			Risks:             risks,
		},
	}
}
