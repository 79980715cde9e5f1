package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
)

const (
	batchCVDir      = "cv"
	batchProjectDir = "project"
)

// BatchFiles are the absolute paths of one upload batch.
type BatchFiles struct {
	CV      []string
	Project []string
}

// StorageService owns upload batches laid out as <upload dir>/<batch id>/{cv,project}/.
type StorageService interface {
	EnsureUploadDir() error
	SaveBatch(cvFiles, projectFiles []*multipart.FileHeader) (*models.UploadResponse, error)
	BatchPaths(batchID string) (*BatchFiles, error)
	DeleteBatch(batchID string) error
}

type storageService struct {
	uploadPath  string
	maxFileSize int64
	log         *zap.Logger
}

func NewStorageService(uploadPath string, maxFileSize int64, log *zap.Logger) StorageService {
	return &storageService{
		uploadPath:  uploadPath,
		maxFileSize: maxFileSize,
		log:         logger.OrNop(log),
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) validate(file *multipart.FileHeader) error {
	if !IsSupported(file.Filename) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, file.Filename)
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, file.Filename, file.Size)
	}
	return nil
}

// SaveBatch validates every file before writing any of them.
func (s *storageService) SaveBatch(cvFiles, projectFiles []*multipart.FileHeader) (*models.UploadResponse, error) {
	if len(cvFiles) == 0 && len(projectFiles) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, f := range append(append([]*multipart.FileHeader{}, cvFiles...), projectFiles...) {
		if err := s.validate(f); err != nil {
			return nil, err
		}
	}

	batchID := uuid.NewString()
	resp := &models.UploadResponse{
		BatchID: batchID,
		Files:   models.UploadFiles{CV: []string{}, Project: []string{}},
	}

	var err error
	if resp.Files.CV, err = s.saveAll(batchID, batchCVDir, cvFiles); err != nil {
		s.cleanup(batchID)
		return nil, err
	}
	if resp.Files.Project, err = s.saveAll(batchID, batchProjectDir, projectFiles); err != nil {
		s.cleanup(batchID)
		return nil, err
	}

	s.log.Info("📥 batch saved",
		zap.String(logger.FieldBatchID, batchID),
		zap.Int("cv_files", len(cvFiles)),
		zap.Int("project_files", len(projectFiles)),
	)
	return resp, nil
}

func (s *storageService) saveAll(batchID, kind string, files []*multipart.FileHeader) ([]string, error) {
	dir := filepath.Join(s.uploadPath, batchID, kind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for i, file := range files {
		name := fmt.Sprintf("%02d_%s", i, filepath.Base(file.Filename))
		if err := saveFile(file, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func saveFile(file *multipart.FileHeader, dstPath string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *storageService) cleanup(batchID string) {
	if err := s.DeleteBatch(batchID); err != nil {
		s.log.Warn("⚠️  failed to clean up partial batch", zap.String(logger.FieldBatchID, batchID), zap.Error(err))
	}
}

// batchDir resolves a batch directory and refuses anything outside the upload root.
func (s *storageService) batchDir(batchID string) (string, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidBatchID, batchID)
	}

	root, err := filepath.Abs(s.uploadPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	dir := filepath.Join(root, batchID)
	if !strings.HasPrefix(dir, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidBatchID, batchID)
	}
	return dir, nil
}

// BatchPaths lists the stored files of a batch as absolute paths.
func (s *storageService) BatchPaths(batchID string) (*BatchFiles, error) {
	dir, err := s.batchDir(batchID)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	cv, err := listFiles(filepath.Join(dir, batchCVDir))
	if err != nil {
		return nil, err
	}
	project, err := listFiles(filepath.Join(dir, batchProjectDir))
	if err != nil {
		return nil, err
	}
	if len(cv) == 0 && len(project) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBatch, batchID)
	}
	return &BatchFiles{CV: cv, Project: project}, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// DeleteBatch removes the batch directory. A missing directory is not an error.
func (s *storageService) DeleteBatch(batchID string) error {
	dir, err := s.batchDir(batchID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}
