package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/table"
)

// ParseFile reads a CSV or XLSX dynamometer log.
func ParseFile(path string) (*ParsedLog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open log file", err).WithContext("file", path)
	}
	defer file.Close()

	return ParseReader(file, filepath.Base(path))
}

// ParseReader reads a log from r. name is used to pick the format by its
// extension and to label warnings.
func ParseReader(r io.Reader, name string) (*ParsedLog, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		records, err = readCSV(r)
	case ".xlsx":
		records, err = readXLSX(r)
	default:
		return nil, apperrors.NewParsingError(fmt.Sprintf("unsupported file type %q", filepath.Ext(name)), nil).WithContext("file", name)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read log data", err).WithContext("file", name)
	}

	parsed, err := parseRecords(records, name)
	if err != nil {
		return nil, err
	}
	parsed.Sources = append(parsed.Sources, name)
	return parsed, nil
}

// ParseFiles loads several logs and stacks them in the given order. Files
// are read concurrently; the first failure is returned.
func ParseFiles(paths []string) (*ParsedLog, error) {
	if len(paths) == 0 {
		return nil, apperrors.NewParsingError("no log files supplied", nil)
	}
	logs := make([]*ParsedLog, len(paths))
	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			parsed, err := ParseFile(p)
			if err != nil {
				return err
			}
			logs[i] = parsed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Concat(logs...), nil
}

// Concat merges parsed logs: tables are stacked with a column union and
// warnings and sources are kept in order.
func Concat(logs ...*ParsedLog) *ParsedLog {
	out := NewParsedLog()
	tables := make([]*table.Table, 0, len(logs))
	for _, l := range logs {
		if l == nil {
			continue
		}
		tables = append(tables, l.Table)
		out.Sources = append(out.Sources, l.Sources...)
		out.ParseErrors = append(out.ParseErrors, l.ParseErrors...)
	}
	out.Table = table.Concat(tables...)
	return out
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Logger exports sometimes leave trailing cells off short rows
	return reader.ReadAll()
}

// parseRecords turns header + sample rows into a table. Non-numeric cells
// become NaN and are reported once per column.
func parseRecords(records [][]string, name string) (*ParsedLog, error) {
	parsed := NewParsedLog()

	// Skip leading blank lines before the header
	start := 0
	for start < len(records) && isBlankRow(records[start]) {
		start++
	}
	if start >= len(records) {
		return nil, apperrors.NewParsingError("log has no header row", nil).WithContext("file", name)
	}

	headers := headerNames(records[start])
	var rows [][]string
	for _, row := range records[start+1:] {
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("log has no data rows", nil).WithContext("file", name)
	}

	cols := make([][]float64, len(headers))
	badCells := make([]int, len(headers))
	for c := range headers {
		cols[c] = make([]float64, len(rows))
		for r, row := range rows {
			cols[c][r] = math.NaN()
			if c >= len(row) {
				badCells[c]++
				continue
			}
			cell := strings.TrimSpace(row[c])
			val, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				badCells[c]++
				continue
			}
			cols[c][r] = val
		}
	}

	for c, bad := range badCells {
		if bad == 0 {
			continue
		}
		if bad == len(rows) {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Warning: %s column '%s' has no numeric values. All rows set to NaN.", name, headers[c]))
		} else {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Warning: %s column '%s' - %d of %d cells are empty or non-numeric. Using NaN.", name, headers[c], bad, len(rows)))
		}
	}

	tbl, err := table.New(headers, cols)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to build table", err).WithContext("file", name)
	}
	parsed.Table = tbl
	return parsed, nil
}

// headerNames trims header cells, names blank ones "Unnamed: i" and suffixes
// repeats with ".1", ".2", ...
func headerNames(row []string) []string {
	names := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, cell := range row {
		name := strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("%s%d", UnnamedColumnPrefix, i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[base]++
			name = fmt.Sprintf("%s.%d", base, seen[base])
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
