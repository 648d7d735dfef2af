package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/furqan899/safelift-ai/pkg/models"
)

// JSONExporter writes one pretty-printed UTF-8 file mapping each data type
// to its record array. Non-ASCII characters are written literally. Records
// are streamed; only one record is held in memory at a time.
type JSONExporter struct {
	MediaRoot string
}

func (e *JSONExporter) Export(ctx context.Context, job *models.ExportJob, collectors []Collector) (string, int64, error) {
	dir, err := ensureJobDir(e.MediaRoot, job.ID)
	if err != nil {
		return "", 0, err
	}

	name := fmt.Sprintf("export_%s.json", job.ID)
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating json file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := writeJSON(ctx, w, collectors); err != nil {
		f.Close()
		return "", 0, err
	}
	if err := w.Flush(); err != nil {
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

func writeJSON(ctx context.Context, w *bufio.Writer, collectors []Collector) error {
	w.WriteString("{")
	for i, c := range collectors {
		if i > 0 {
			w.WriteString(",")
		}
		fmt.Fprintf(w, "\n  %q: [", c.Name())

		first := true
		err := c.Collect(ctx, func(rec Record) error {
			if !first {
				w.WriteString(",")
			}
			first = false
			w.WriteString("\n    ")
			return writeIndentedRecord(w, rec)
		})
		if err != nil {
			return fmt.Errorf("collecting %s: %w", c.Name(), err)
		}

		if first {
			w.WriteString("]")
		} else {
			w.WriteString("\n  ]")
		}
	}
	w.WriteString("\n}\n")
	return nil
}

// writeIndentedRecord encodes one record at the array nesting depth with
// HTML escaping off so non-ASCII and markup characters stay literal.
func writeIndentedRecord(w *bufio.Writer, rec Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("    ", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}
	// Encode appends a newline; the caller manages line breaks.
	_, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return err
}
