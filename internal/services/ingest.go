package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
)

const defaultLang = "en"

type IngestOptions struct {
	JobID       string
	SourceType  models.SourceType
	Section     string
	CandidateID string
	MaskPII     bool
}

type IngestSummary struct {
	Chunks     int      `json:"chunks"`
	IDs        []string `json:"ids"`
	Collection string   `json:"collection"`
}

// Ingestor loads documents and writes their chunks into an evidence index.
type Ingestor struct {
	index   EvidenceIndex
	loader  TextLoader
	chunker TextChunker
	log     *zap.Logger
}

func NewIngestor(index EvidenceIndex, loader TextLoader, chunker TextChunker, log *zap.Logger) *Ingestor {
	return &Ingestor{
		index:   index,
		loader:  loader,
		chunker: chunker,
		log:     logger.OrNop(log),
	}
}

// IngestDocument stores one file as consecutive word windows tagged with opts.
func (i *Ingestor) IngestDocument(ctx context.Context, path string, opts IngestOptions) (int, []string, error) {
	if opts.JobID == "" {
		return 0, nil, fmt.Errorf("job id is required")
	}
	if !opts.SourceType.Valid() {
		return 0, nil, fmt.Errorf("invalid source type: %q", opts.SourceType)
	}

	text, meta, err := i.prepare(path, opts)
	if err != nil {
		return 0, nil, err
	}

	chunks := i.chunker.ChunkText(text)
	if len(chunks) == 0 {
		i.log.Warn("⚠️  document produced no chunks", zap.String("path", path))
		return 0, nil, nil
	}

	ids, err := i.index.Ingest(ctx, chunks, meta)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to ingest %s: %w", meta.Filename, err)
	}

	i.log.Info("✅ document ingested",
		zap.String("filename", meta.Filename),
		zap.String(logger.FieldPosting, opts.JobID),
		zap.String("source_type", string(opts.SourceType)),
		zap.Int("chunks", len(ids)),
	)
	return len(ids), ids, nil
}

// IngestDocumentAutoSections splits a job description on its headings and
// ingests each section under its own label.
func (i *Ingestor) IngestDocumentAutoSections(ctx context.Context, path, jobID string, maskPII bool) (int, []string, error) {
	if jobID == "" {
		return 0, nil, fmt.Errorf("job id is required")
	}

	opts := IngestOptions{JobID: jobID, SourceType: models.SourceJobDescription, MaskPII: maskPII}
	text, meta, err := i.prepare(path, opts)
	if err != nil {
		return 0, nil, err
	}

	var all []string
	for _, sec := range i.chunker.SplitSections(text) {
		chunks := i.chunker.ChunkText(sec.Text)
		if len(chunks) == 0 {
			continue
		}

		secMeta := meta
		secMeta.Section = sec.Key
		ids, err := i.index.Ingest(ctx, chunks, secMeta)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to ingest section %s of %s: %w", sec.Key, meta.Filename, err)
		}
		i.log.Debug("section ingested", zap.String("section", sec.Key), zap.Int("chunks", len(ids)))
		all = append(all, ids...)
	}

	i.log.Info("✅ document ingested by section",
		zap.String("filename", meta.Filename),
		zap.String(logger.FieldPosting, jobID),
		zap.Int("chunks", len(all)),
	)
	return len(all), all, nil
}

// IngestBatch ingests every path with the same options and stops at the first failure.
func (i *Ingestor) IngestBatch(ctx context.Context, paths []string, opts IngestOptions, autoSection bool) (IngestSummary, error) {
	summary := IngestSummary{IDs: []string{}}
	if named, ok := i.index.(interface{ Collection() string }); ok {
		summary.Collection = named.Collection()
	}

	for _, path := range paths {
		var (
			n   int
			ids []string
			err error
		)
		if autoSection && opts.SourceType == models.SourceJobDescription {
			n, ids, err = i.IngestDocumentAutoSections(ctx, path, opts.JobID, opts.MaskPII)
		} else {
			n, ids, err = i.IngestDocument(ctx, path, opts)
		}
		if err != nil {
			return summary, err
		}
		summary.Chunks += n
		summary.IDs = append(summary.IDs, ids...)
	}
	return summary, nil
}

func (i *Ingestor) prepare(path string, opts IngestOptions) (string, models.RecordMetadata, error) {
	raw, err := i.loader.LoadText(path)
	if err != nil {
		return "", models.RecordMetadata{}, err
	}

	hash, err := fileSHA256(path)
	if err != nil {
		return "", models.RecordMetadata{}, err
	}

	meta := models.RecordMetadata{
		JobID:       opts.JobID,
		SourceType:  opts.SourceType,
		Section:     opts.Section,
		CandidateID: opts.CandidateID,
		Filename:    filepath.Base(path),
		ContentHash: hash,
		Lang:        defaultLang,
	}
	return NormalizeText(raw, opts.MaskPII), meta, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
