package models

import "time"

type SourceType string

const (
	SourceJobDescription SourceType = "jd"
	SourceRubric         SourceType = "rubric"
	SourceCV             SourceType = "cv"
	SourceProject        SourceType = "project"
)

// Valid reports whether s is one of the known evidence categories.
func (s SourceType) Valid() bool {
	switch s {
	case SourceJobDescription, SourceRubric, SourceCV, SourceProject:
		return true
	}
	return false
}

// Rubric sections queried by the retriever.
const (
	SectionRubricCV      = "rubric_cv"
	SectionRubricProject = "rubric_project"
	SectionOverview      = "overview"
)

// Chunk is a bounded window of normalized text and its position within the source document.
type Chunk struct {
	Index int
	Text  string
}

// RecordMetadata is the provenance attached to every evidence record.
type RecordMetadata struct {
	JobID       string
	SourceType  SourceType
	Section     string
	CandidateID string
	Filename    string
	ContentHash string
	Lang        string
}

// EvidenceRecord is one embedded chunk owned by an index.
type EvidenceRecord struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  RecordMetadata
	ChunkIdx  int
	CreatedAt time.Time
}

// SearchFilter constrains a search by exact metadata match. Empty fields are not constrained.
type SearchFilter struct {
	JobID       string
	SourceType  SourceType
	Section     string
	CandidateID string
}

// Matches reports whether md satisfies every non-empty filter field.
func (f SearchFilter) Matches(md RecordMetadata) bool {
	if f.JobID != "" && f.JobID != md.JobID {
		return false
	}
	if f.SourceType != "" && f.SourceType != md.SourceType {
		return false
	}
	if f.Section != "" && f.Section != md.Section {
		return false
	}
	if f.CandidateID != "" && f.CandidateID != md.CandidateID {
		return false
	}
	return true
}

// SearchHit is a ranked record returned by either index variant.
type SearchHit struct {
	ID       string
	Text     string
	Metadata RecordMetadata
	ChunkIdx int
	Distance float64
}

// EvidenceItem is the prompt-facing view of a hit.
type EvidenceItem struct {
	ChunkID  string `json:"chunk_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Snippet  string `json:"snippet"`
}
