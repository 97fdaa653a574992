package commit

import (
	"fmt"
	"os"

	"github.com/oakwood-commons/filequery/internal/format"
	"github.com/oakwood-commons/filequery/internal/query"
)

// Result is the body of a successful write, per spec.md §4.E: a small
// acknowledgement object, never the file contents.
type Result struct {
	Modified bool   `json:"modified"`
	File     string `json:"file"`
	Query    string `json:"query"`
}

// Writer implements the six-step commit sequence of spec.md §4.E over a
// canonical, already path-safety-checked file path. It does not itself
// resolve `..`/symlinks/project roots — that is internal/pathsafety's
// job, invoked by the caller before Write is reached.
type Writer struct {
	Tracker *ReadTracker
}

// NewWriter returns a Writer consulting tracker for the read-before-write
// gate.
func NewWriter(tracker *ReadTracker) *Writer {
	return &Writer{Tracker: tracker}
}

// Write applies querySrc (which must parse as a top-level assignment) to
// the document at path, re-encoded in f, per the six steps of spec.md
// §4.E:
//
//  1. read-tracking check (existing files only)
//  2. parse the file into a value tree
//  3. evaluate the assignment
//  4. optional backup copy
//  5. serialize
//  6. write-temp-then-rename
func (w *Writer) Write(path, querySrc string, f format.Format, backup bool) (*Result, error) {
	data, exists, err := readIfExists(path)
	if err != nil {
		return nil, &query.Error{Kind: query.FileNotFound, Message: err.Error()}
	}

	if exists && !w.Tracker.HasRead(path) {
		return nil, &query.Error{Kind: query.OperationNotPermitted, Message: "file must be read before editing"}
	}

	input, err := format.Parse(data, f)
	if err != nil {
		return nil, err
	}

	node, err := query.Parse(querySrc, true)
	if err != nil {
		return nil, err
	}
	assignment, ok := node.(*query.Assignment)
	if !ok {
		return nil, &query.Error{Kind: query.InvalidSyntax, Message: "write operations require an assignment expression (path = expr)"}
	}

	result, err := query.Eval(assignment, input)
	if err != nil {
		return nil, err
	}

	if backup && exists {
		if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
			return nil, fmt.Errorf("write backup: %w", err)
		}
	}

	encoded, err := format.Emit(result, f)
	if err != nil {
		return nil, err
	}

	if err := atomicWrite(path, encoded); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	return &Result{Modified: true, File: path, Query: querySrc}, nil
}

func readIfExists(path string) (data []byte, exists bool, err error) {
	data, err = os.ReadFile(path)
	if err == nil {
		return data, true, nil
	}
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	return nil, false, err
}

// atomicWrite writes data to path by first writing path+".tmp" and then
// renaming it over path, per spec.md §4.E step 6 and §6's temp-file
// naming rule, grounded on the ConfigWriter.atomicWrite pattern (write
// temp, rename, clean up the temp file on a failed rename).
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
