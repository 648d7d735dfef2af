package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/furqan899/safelift-ai/pkg/models"
)

// placeholderHeader is written when a dataset has no records, so every
// CSV file still has a header row.
var placeholderHeader = []string{"empty"}

// CSVExporter writes one CSV per data type. A single data type produces a
// standalone .csv; multiple data types produce a ZIP archive named by the
// job id with one {data_type}.csv entry each.
type CSVExporter struct {
	MediaRoot string
}

func (e *CSVExporter) Export(ctx context.Context, job *models.ExportJob, collectors []Collector) (string, int64, error) {
	dir, err := ensureJobDir(e.MediaRoot, job.ID)
	if err != nil {
		return "", 0, err
	}

	if len(collectors) == 1 {
		name := collectors[0].Name() + ".csv"
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return "", 0, fmt.Errorf("creating csv file: %w", err)
		}
		if err := writeCSV(ctx, f, collectors[0]); err != nil {
			f.Close()
			return "", 0, err
		}
		if err := f.Close(); err != nil {
			return "", 0, err
		}
		size, err := fileSize(path)
		if err != nil {
			return "", 0, err
		}
		return filepath.Join(jobRelDir(job.ID), name), size, nil
	}

	name := fmt.Sprintf("export_%s.zip", job.ID)
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating zip file: %w", err)
	}
	zw := zip.NewWriter(f)
	for _, c := range collectors {
		entry, err := zw.Create(c.Name() + ".csv")
		if err != nil {
			f.Close()
			return "", 0, fmt.Errorf("creating zip entry: %w", err)
		}
		if err := writeCSV(ctx, entry, c); err != nil {
			f.Close()
			return "", 0, err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("closing zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, err
	}
	size, err := fileSize(path)
	if err != nil {
		return "", 0, err
	}
	return filepath.Join(jobRelDir(job.ID), name), size, nil
}

// writeCSV streams one collector into w. The header comes from the first
// record's field names; an empty dataset gets the placeholder header.
func writeCSV(ctx context.Context, w io.Writer, c Collector) error {
	cw := csv.NewWriter(w)
	wroteHeader := false

	err := c.Collect(ctx, func(rec Record) error {
		if !wroteHeader {
			if err := cw.Write(rec.Keys()); err != nil {
				return err
			}
			wroteHeader = true
		}
		return cw.Write(rec.CSVRow())
	})
	if err != nil {
		return fmt.Errorf("collecting %s: %w", c.Name(), err)
	}

	if !wroteHeader {
		if err := cw.Write(placeholderHeader); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
