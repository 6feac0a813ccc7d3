// Package migrate bulk-loads board documents into the remote store.
//
// The input is JSONL: one document per line, as produced by a document
// database export. A line's "id" (or "documentId") key becomes the document
// id and is removed from the stored fields; the remaining keys are stored
// as-is, so legacy field representations survive the import and are
// normalized when boards are read.
package migrate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/teamboard/teamboard/internal/remote"
)

// maxLineSize bounds a single JSONL line.
const maxLineSize = 4 << 20

// ImportOptions configures an import.
type ImportOptions struct {
	Path   string // Input JSONL file path
	DryRun bool   // Validate without writing
	Backup bool   // Copy the input file aside first
}

// ImportResult contains statistics about the import.
type ImportResult struct {
	Imported      int
	Skipped       int
	IDs           []string
	BackupCreated string
	Errors        []string
}

// ReadDocuments parses a JSONL file into documents. Blank lines are
// ignored; a malformed line is reported in errs and skipped.
func ReadDocuments(path string) (docs []remote.Document, errs []string, err error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			errs = append(errs, fmt.Sprintf("line %d: invalid JSON: %v", lineNum, err))
			continue
		}
		if fields == nil {
			errs = append(errs, fmt.Sprintf("line %d: not a JSON object", lineNum))
			continue
		}

		docs = append(docs, Document(fields))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read JSONL file: %w", err)
	}
	return docs, errs, nil
}

// Document splits the id key out of an exported document.
func Document(fields map[string]any) remote.Document {
	var id string
	for _, key := range []string{"id", "documentId"} {
		if s, ok := fields[key].(string); ok && id == "" {
			id = s
		}
		delete(fields, key)
	}
	return remote.Document{ID: id, Fields: fields}
}

// ImportJSONL writes every importable document in the file to store.
// Documents that do not decode as boards are skipped and reported.
func ImportJSONL(ctx context.Context, store remote.Store, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	if _, err := os.Stat(opts.Path); err != nil {
		return nil, fmt.Errorf("input file does not exist: %w", err)
	}

	if opts.Backup && !opts.DryRun {
		backupPath := opts.Path + ".backup." + time.Now().Format("20060102-150405")
		input, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
		result.BackupCreated = backupPath
	}

	docs, lineErrs, err := ReadDocuments(opts.Path)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, lineErrs...)
	result.Skipped += len(lineErrs)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		b, err := remote.DecodeBoard(doc)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			result.Skipped++
			continue
		}

		if opts.DryRun {
			result.Imported++
			result.IDs = append(result.IDs, doc.ID)
			continue
		}

		id, err := store.Set(ctx, doc.ID, doc.Fields)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to write board %q: %v", b.Name, err))
			result.Skipped++
			continue
		}
		result.Imported++
		result.IDs = append(result.IDs, id)
	}

	return result, nil
}
