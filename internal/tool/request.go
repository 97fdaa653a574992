// Package tool is the request/response boundary of spec.md §6: it is
// deliberately not a protocol server (no stdio/JSON-RPC framing, out of
// scope per spec.md §1) but the thin dispatcher a real transport would
// call, wiring together path-safety, format detection, the query
// engine, and the commit writer for one request.
package tool

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/filequery/internal/commit"
	"github.com/oakwood-commons/filequery/internal/format"
	"github.com/oakwood-commons/filequery/internal/pathsafety"
	"github.com/oakwood-commons/filequery/internal/query"
	"github.com/oakwood-commons/filequery/pkg/logger"
)

// Operation is the request's read/write mode, per spec.md §6.
type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
)

// Request mirrors the shape-level request object of spec.md §6.
type Request struct {
	FilePath       string
	Query          string
	Operation      Operation // default OperationRead when empty
	OutputFormat   format.OutputFormat
	InPlace        bool
	Backup         bool
	FollowSymlinks bool
}

// WriteResult is the acknowledgement body for a successful write,
// spec.md §4.E's `{modified, file, query}` object.
type WriteResult struct {
	Modified bool   `json:"modified"`
	File     string `json:"file"`
	Query    string `json:"query"`
}

// Response is either a rendered text blob (read) or a write
// acknowledgement (write); exactly one of Text/Write is set.
type Response struct {
	Text  string
	Write *WriteResult
}

// Deps are the collaborators Handle needs but does not construct itself,
// so callers control their lifetime (one ReadTracker per session, one
// Resolver policy, one project root).
type Deps struct {
	Tracker     *commit.ReadTracker
	Resolver    pathsafety.Resolver
	ProjectRoot string
}

// Handle dispatches one request end to end: resolve the path, detect
// the on-disk format, run the query, and either render the result
// (read) or commit it (write). Returned errors are query.Error values
// where possible so FormatError can render them per spec.md §7. ctx
// carries the request-scoped logr.Logger the way pkg/logger's
// WithLogger/FromContext pair is used throughout the teacher; Handle
// itself never suspends on ctx.Done() since parse/evaluate/format are
// pure CPU-bound steps per spec.md §5 ("nothing inside parse/evaluate/
// format may suspend").
func Handle(ctx context.Context, req Request, deps Deps) (*Response, error) {
	lgr := logger.FromContext(ctx)

	op := req.Operation
	if op == "" {
		op = OperationRead
	}

	resolverOp := pathsafety.OperationRead
	if op == OperationWrite {
		resolverOp = pathsafety.OperationWrite
		if !req.InPlace {
			return nil, &query.Error{Kind: query.InvalidArgument, Message: "write operations require in_place=true"}
		}
	}

	resolved, err := deps.Resolver.Resolve(req.FilePath, deps.ProjectRoot, req.FollowSymlinks, resolverOp)
	if err != nil {
		return nil, err
	}

	if op == OperationWrite {
		return handleWrite(req, deps, resolved, *lgr)
	}
	return handleRead(req, deps, resolved, *lgr)
}

func handleRead(req Request, deps Deps, resolved string, lgr logr.Logger) (*Response, error) {
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &query.Error{Kind: query.FileNotFound, Message: resolved}
		}
		return nil, err
	}
	deps.Tracker.MarkRead(resolved)

	v, _, err := detectAndParse(data, resolved, lgr)
	if err != nil {
		return nil, err
	}

	node, err := query.Parse(req.Query, false)
	if err != nil {
		return nil, err
	}
	result, err := query.Eval(node, v)
	if err != nil {
		return nil, err
	}

	out, err := format.Render(result, req.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &Response{Text: out}, nil
}

func handleWrite(req Request, deps Deps, resolved string, lgr logr.Logger) (*Response, error) {
	f, err := detectFormatForWrite(resolved, lgr)
	if err != nil {
		return nil, err
	}

	w := commit.NewWriter(deps.Tracker)
	res, err := w.Write(resolved, req.Query, f, req.Backup)
	if err != nil {
		return nil, err
	}
	return &Response{Write: &WriteResult{Modified: res.Modified, File: res.File, Query: res.Query}}, nil
}

// detectAndParse parses data using the extension-implied format if
// recognized, falling back to content-based auto-detection otherwise.
func detectAndParse(data []byte, path string, lgr logr.Logger) (*query.Value, format.Format, error) {
	if f, ok := format.ExtToFormat(extOf(path)); ok {
		v, err := format.Parse(data, f)
		return v, f, err
	}
	v, f, err := format.Detect(data, "", lgr)
	return v, f, err
}

// detectFormatForWrite resolves which format to parse/serialize an
// existing (or new) file as: the file extension when recognized,
// otherwise auto-detected from its current content (empty for a new
// file, which every format parses to Null).
func detectFormatForWrite(path string, lgr logr.Logger) (format.Format, error) {
	if f, ok := format.ExtToFormat(extOf(path)); ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return format.JSON, nil
		}
		return "", err
	}
	_, f, err := format.Detect(data, "", lgr)
	return f, err
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

// FormatError renders err as the user-visible "Error: <tool> -
// <message>" string of spec.md §7, deriving <tool> from the format
// being queried (the Rust implementation's jq/yq/tomlq naming, kept
// here only as a display label, never a public Go identifier).
func FormatError(f format.Format, err error) string {
	return fmt.Sprintf("Error: %s - %s", toolNameForFormat(f), err.Error())
}

func toolNameForFormat(f format.Format) string {
	switch f {
	case format.YAML:
		return "yq"
	case format.TOML:
		return "tomlq"
	default:
		return "jq"
	}
}
