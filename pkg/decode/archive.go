package decode

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// maxArchiveFileBytes caps a single in-archive JSON document. Roster
// records are a few KB; anything past this is corrupt or hostile.
const maxArchiveFileBytes = 8 << 20

// ArchiveResult carries the outcome of one archive decode pass.
type ArchiveResult[T any] struct {
	Records []T
	Skipped int
}

// ArchiveJSON enumerates every .json entry under pathPrefix inside the zip
// archive at path and decodes each one independently into T. A file that
// fails to open or parse is logged and counted, never fatal: one malformed
// record must not abort a batch of thousands.
//
// Entries are walked as an explicit worklist with exactly one entry open at
// a time, so descriptor and memory usage stay bounded on archives with tens
// of thousands of files.
func ArchiveJSON[T any](logger *zap.Logger, path, pathPrefix string) (ArchiveResult[T], error) {
	var out ArchiveResult[T]

	zr, err := zip.OpenReader(path)
	if err != nil {
		return out, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	worklist := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if pathPrefix != "" && !strings.HasPrefix(f.Name, pathPrefix) {
			continue
		}
		if !strings.HasSuffix(f.Name, ".json") {
			continue
		}
		worklist = append(worklist, f)
	}

	out.Records = make([]T, 0, len(worklist))
	for len(worklist) > 0 {
		f := worklist[0]
		worklist = worklist[1:]

		rec, decErr := decodeArchiveEntry[T](f)
		if decErr != nil {
			out.Skipped++
			logger.Warn("Skipping malformed archive entry",
				zap.String("archive", path),
				zap.String("entry", f.Name),
				zap.Error(decErr))
			continue
		}
		out.Records = append(out.Records, rec)
	}

	return out, nil
}

func decodeArchiveEntry[T any](f *zip.File) (T, error) {
	var rec T
	rc, err := f.Open()
	if err != nil {
		return rec, fmt.Errorf("open entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	dec := json.NewDecoder(io.LimitReader(rc, maxArchiveFileBytes))
	if err := dec.Decode(&rec); err != nil {
		return rec, fmt.Errorf("decode entry: %w", err)
	}
	return rec, nil
}
