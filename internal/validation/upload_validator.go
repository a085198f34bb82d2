// Package validation checks uploads and loader inputs before they reach the
// ingestion engine.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"perfhub/internal/config"
	apierrors "perfhub/internal/errors"
)

// UploadValidator validates uploaded files against the configured limits.
type UploadValidator struct {
	cfg    config.UploadConfig
	allows func(string) bool
	logger *slog.Logger
}

// NewUploadValidator creates an upload validator from the upload config.
func NewUploadValidator(cfg *config.Config, logger *slog.Logger) *UploadValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadValidator{
		cfg:    cfg.Upload,
		allows: cfg.AllowsExtension,
		logger: logger,
	}
}

// ValidateUpload checks the filename extension and declared size.
func (v *UploadValidator) ValidateUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		v.logger.Warn("upload rejected: no extension",
			slog.String("filename", filename))
		return apierrors.NewAppValidationError(fmt.Sprintf("file %s has no extension", filename))
	}
	if !v.allows(ext) {
		v.logger.Warn("upload rejected: unsupported extension",
			slog.String("filename", filename),
			slog.String("extension", ext))
		return apierrors.NewAppValidationError(fmt.Sprintf("unsupported file extension %s (allowed: %s)",
			ext, strings.Join(v.cfg.AllowedExtensions, ", ")))
	}
	if size > v.cfg.MaxFileSize {
		v.logger.Warn("upload rejected: too large",
			slog.String("filename", filename),
			slog.Int64("size", size),
			slog.Int64("max", v.cfg.MaxFileSize))
		return apierrors.NewAppValidationError(fmt.Sprintf("file %s exceeds the %d byte limit", filename, v.cfg.MaxFileSize))
	}
	return nil
}

// FileValidator provides file and directory checks for the batch loader.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputDirectory validates that the input directory exists and
// reports how many files match the pattern.
func (v *FileValidator) ValidateInputDirectory(dir string, requiredPattern string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("input directory does not exist",
			slog.String("directory", dir))
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if requiredPattern != "" {
		matches, err := filepath.Glob(filepath.Join(dir, requiredPattern))
		if err != nil {
			return fmt.Errorf("failed to check for files: %w", err)
		}
		if len(matches) == 0 {
			v.logger.Warn("no files matching pattern found",
				slog.String("directory", dir),
				slog.String("pattern", requiredPattern))
			return nil
		}
		v.logger.Info("input directory validated",
			slog.String("directory", dir),
			slog.Int("files_found", len(matches)),
			slog.String("pattern", requiredPattern))
	}
	return nil
}

// ValidateFile checks if a specific file exists and is a regular file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}
