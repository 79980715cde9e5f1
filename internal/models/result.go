package models

type UploadResponse struct {
	BatchID string      `json:"batch_id"`
	Files   UploadFiles `json:"files"`
}

type UploadFiles struct {
	CV      []string `json:"cv"`
	Project []string `json:"project"`
}

type EvaluateRequest struct {
	JobID   string `json:"job_id"`
	BatchID string `json:"batch_id"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Result *EvaluationData `json:"result,omitempty"`
	Error  *string         `json:"error,omitempty"`
}

// EvaluationData is the public view of a completed evaluation.
type EvaluationData struct {
	CVMatchRate     float64 `json:"cv_match_rate"`
	CVFeedback      string  `json:"cv_feedback"`
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
	OverallSummary  string  `json:"overall_summary"`
	Decision        string  `json:"decision"`
}
