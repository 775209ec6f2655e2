package decode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// The amendment export is a line-oriented dump far too large to parse as a
// single document. Block markers ("COPY <table> (cols...) FROM stdin;" ...
// "\.") delimit which logical table a contiguous run of tab-separated lines
// belongs to. The stream is consumed exactly once, line by line; only rows
// that pass the per-table early filter are kept in the in-memory index, so
// memory stays bounded by the recency window rather than the file size.

// TableSpec declares interest in one dump table. Field positions are never
// addressed by number outside this package: the schema parsed off the COPY
// marker is the single place positional fragility lives.
type TableSpec struct {
	// Name matches the table name on the COPY marker.
	Name string
	// KeyField indexes surviving rows.
	KeyField string
	// DateField, when non-empty, is parsed and compared against the
	// cutoff passed to StreamDump; older rows are filtered out early.
	DateField string
}

// Row is one kept dump line with named-field access.
type Row struct {
	fields map[string]int
	values []string
}

// Get returns the named field, or "" when absent. Dump NULLs (\N) read as "".
func (r Row) Get(name string) string {
	idx, ok := r.fields[name]
	if !ok || idx >= len(r.values) {
		return ""
	}
	return r.values[idx]
}

// Date parses the named field as a dump date (date-only or datetime).
func (r Row) Date(name string) (time.Time, bool) {
	return parseDumpDate(r.Get(name))
}

// DumpResult holds one index map per requested table plus the count of
// lines that failed to parse.
type DumpResult struct {
	Tables       map[string]map[string]Row
	SkippedLines int
}

// maxDumpLineBytes bounds a single dump line; amendment bodies run long.
const maxDumpLineBytes = 4 << 20

// StreamDump consumes the dump once, keeping rows of the requested tables
// whose date field (when declared) is on or after cutoff. A line that fails
// to parse is counted and skipped, never fatal. Rows across tables are
// linked by the caller after the stream completes.
func StreamDump(logger *zap.Logger, r io.Reader, specs []TableSpec, cutoff time.Time) (DumpResult, error) {
	res := DumpResult{Tables: make(map[string]map[string]Row, len(specs))}
	wanted := make(map[string]TableSpec, len(specs))
	for _, s := range specs {
		wanted[s.Name] = s
		res.Tables[s.Name] = make(map[string]Row)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxDumpLineBytes)

	var (
		current   *TableSpec
		fields    map[string]int
		lineNo    int
		inWanted  bool
		inAnyCopy bool
	)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if !inAnyCopy {
			name, cols, ok := parseCopyMarker(line)
			if !ok {
				continue
			}
			inAnyCopy = true
			if spec, want := wanted[name]; want {
				current = &spec
				fields = make(map[string]int, len(cols))
				for i, c := range cols {
					fields[c] = i
				}
				inWanted = true
			} else {
				inWanted = false
			}
			continue
		}

		if line == `\.` {
			inAnyCopy = false
			current = nil
			inWanted = false
			continue
		}

		if !inWanted {
			continue
		}

		values := strings.Split(line, "\t")
		for i, v := range values {
			if v == `\N` {
				values[i] = ""
			}
		}
		if len(values) != len(fields) {
			res.SkippedLines++
			logger.Warn("Skipping malformed dump line",
				zap.String("table", current.Name),
				zap.Int("line", lineNo),
				zap.Int("got_fields", len(values)),
				zap.Int("want_fields", len(fields)))
			continue
		}

		row := Row{fields: fields, values: values}
		key := row.Get(current.KeyField)
		if key == "" {
			res.SkippedLines++
			logger.Warn("Skipping dump line without key",
				zap.String("table", current.Name),
				zap.Int("line", lineNo))
			continue
		}

		if current.DateField != "" && !cutoff.IsZero() {
			when, ok := row.Date(current.DateField)
			if !ok {
				res.SkippedLines++
				logger.Warn("Skipping dump line with unparseable date",
					zap.String("table", current.Name),
					zap.Int("line", lineNo),
					zap.String("value", row.Get(current.DateField)))
				continue
			}
			if when.Before(cutoff) {
				continue // filtered, not an error
			}
		}

		res.Tables[current.Name][key] = row
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read dump stream: %w", err)
	}
	return res, nil
}

// parseCopyMarker recognizes `COPY <table> (a, b, c) FROM stdin;`.
func parseCopyMarker(line string) (table string, cols []string, ok bool) {
	if !strings.HasPrefix(line, "COPY ") || !strings.HasSuffix(line, "FROM stdin;") {
		return "", nil, false
	}
	open := strings.Index(line, "(")
	end := strings.Index(line, ")")
	if open < 0 || end < open {
		return "", nil, false
	}
	table = strings.TrimSpace(line[len("COPY "):open])
	for _, c := range strings.Split(line[open+1:end], ",") {
		cols = append(cols, strings.TrimSpace(c))
	}
	if table == "" || len(cols) == 0 {
		return "", nil, false
	}
	return table, cols, true
}

func parseDumpDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
