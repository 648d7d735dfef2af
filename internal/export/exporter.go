package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/furqan899/safelift-ai/pkg/models"
)

// Exporter writes the collected data in one output format. Implementations
// return the file path relative to the media root plus its size in bytes.
type Exporter interface {
	Export(ctx context.Context, job *models.ExportJob, collectors []Collector) (string, int64, error)
}

// jobRelDir is the media-root-relative directory for one job's files.
func jobRelDir(jobID uuid.UUID) string {
	return filepath.Join("exports", jobID.String())
}

// ensureJobDir creates the job-scoped output directory and returns its
// absolute path.
func ensureJobDir(mediaRoot string, jobID uuid.UUID) (string, error) {
	dir := filepath.Join(mediaRoot, jobRelDir(jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	return dir, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat export file: %w", err)
	}
	return info.Size(), nil
}
