// Package csvfile writes cycle rows as CSV: a stable "latest" file that is
// replaced every cycle and a per-cycle archive stamped with the UTC time.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"telemetry-collector/internal/domain"
	"telemetry-collector/internal/logger"
)

const archiveStampLayout = "20060102T150405Z"

var ErrNoRows = errors.New("no rows to write")

type Writer struct {
	dir           string
	latestName    string
	archivePrefix string
	log           logger.Logger
}

func NewWriter(dir, latestName, archivePrefix string, log logger.Logger) *Writer {
	return &Writer{
		dir:           dir,
		latestName:    latestName,
		archivePrefix: archivePrefix,
		log:           log,
	}
}

func (w *Writer) Name() string { return "csv" }

func (w *Writer) LatestPath() string {
	return filepath.Join(w.dir, w.latestName)
}

func (w *Writer) ArchivePath(collectedAt time.Time) string {
	return filepath.Join(w.dir, w.archivePrefix+collectedAt.UTC().Format(archiveStampLayout)+".csv")
}

// Write encodes rows once and stores the same bytes in both files. The
// header comes from the first row's field order.
func (w *Writer) Write(ctx context.Context, collectedAt time.Time, rows []domain.FlatRow) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(rows)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	archive := w.ArchivePath(collectedAt)
	latest := w.LatestPath()

	// Both files are staged before either is renamed into place, so a
	// failure leaves neither a new archive nor a replaced latest.
	archiveTmp, err := stageFile(archive, data)
	if err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	defer os.Remove(archiveTmp)

	latestTmp, err := stageFile(latest, data)
	if err != nil {
		return fmt.Errorf("writing latest: %w", err)
	}
	defer os.Remove(latestTmp)

	if err := os.Rename(archiveTmp, archive); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := os.Rename(latestTmp, latest); err != nil {
		if rmErr := os.Remove(archive); rmErr != nil {
			w.log.Warn("csv: removing archive after failed latest write", "archive", archive, "error", rmErr)
		}
		return fmt.Errorf("writing latest: %w", err)
	}

	w.log.Info("csv: rows written", "rows", len(rows), "latest", latest, "archive", archive)
	return nil
}

// Encode renders rows as CSV. Nulls become empty cells.
func Encode(rows []domain.FlatRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	header := rows[0].Names()

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, len(header))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i, len(row), len(header))
		}
		for j, f := range row {
			if f.Name != header[j] {
				return nil, fmt.Errorf("row %d field %d is %q, header has %q", i, j, f.Name, header[j])
			}
			record[j] = formatValue(f.Value)
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// stageFile writes data to a hidden temp file next to path and returns its
// name. Renaming it onto path publishes the content in one step.
func stageFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}

	return tmpName, nil
}

// ReadFile parses a file produced by Write into its header and records.
func ReadFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	return all[0], all[1:], nil
}
