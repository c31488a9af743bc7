// Package tools exposes the ooxml engine as MCP tools. Every tool fetches its
// inputs through a storage.Fetcher, runs one engine operation and stores the
// result through a storage.Uploader.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-ooxml/internal/storage"
	"github.com/benjaminschreck/go-ooxml/pkg/ooxml"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Handler struct {
	engine   *ooxml.Engine
	fetcher  storage.Fetcher
	uploader storage.Uploader
	logger   *ooxml.Logger
}

func NewHandler(engine *ooxml.Engine, fetcher storage.Fetcher, uploader storage.Uploader) *Handler {
	return &Handler{
		engine:   engine,
		fetcher:  fetcher,
		uploader: uploader,
		logger:   ooxml.GetLogger().WithField("component", "tools"),
	}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(name, version string, h *Handler) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
	)
	h.Register(s)
	return s
}

// Register adds the presentation and document tools to s.
func (h *Handler) Register(s *server.MCPServer) {
	registerPresentationTools(s, h)
	registerDocumentTools(s, h)
}

// common parameters
var (
	sourceParam = mcp.WithString("source", mcp.Required(),
		mcp.Description("Path or http(s) URL of the input package."))
	outputParam = mcp.WithString("output",
		mcp.Description("File name for the result. Defaults to the source file name."))
	ifMatchParam = mcp.WithString("if_match",
		mcp.Description("ETag the stored output must currently have; \"*\" requires that it exists."))
)

// mutationResult is returned by every tool that stores a document.
type mutationResult struct {
	Output storage.Handle `json:"output"`
	Detail any            `json:"detail,omitempty"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports err to the caller as a tool error.
func (h *Handler) errorResult(tool string, err error) *mcp.CallToolResult {
	h.logger.WithField("tool", tool).Warn("%v", err)
	return mcp.NewToolResultError(describeError(err))
}

// describeError prefixes err with a stable category the caller can match on.
func describeError(err error) string {
	var category string
	switch {
	case ooxml.IsMalformedPackage(err):
		category = "malformed_package"
	case ooxml.IsIndexOutOfRange(err):
		category = "index_out_of_range"
	case ooxml.IsUnsupportedImportType(err):
		category = "unsupported_import_type"
	case ooxml.IsMissingTargetShape(err):
		category = "missing_target_shape"
	case ooxml.IsInvalidArgument(err):
		category = "invalid_argument"
	case ooxml.IsInternalInconsistency(err):
		category = "internal_inconsistency"
	case errors.Is(err, storage.ErrPreconditionFailed):
		category = "precondition_failed"
	case errors.Is(err, storage.ErrNotFound):
		category = "not_found"
	case errors.Is(err, storage.ErrTooLarge):
		category = "too_large"
	case errors.Is(err, errBadArgument):
		category = "invalid_argument"
	default:
		category = "error"
	}
	return category + ": " + err.Error()
}

// fetch loads the package named by the source argument.
func (h *Handler) fetch(ctx context.Context, req mcp.CallToolRequest, key string) (storage.Source, error) {
	ref, err := requireString(req, key)
	if err != nil {
		return storage.Source{}, err
	}
	return h.fetcher.Fetch(ctx, ref)
}

// store uploads data under the output argument, falling back to fallback.
func (h *Handler) store(ctx context.Context, req mcp.CallToolRequest, fallback string, data []byte) (storage.Handle, error) {
	name := getString(req, "output", "")
	if name == "" {
		name = fallback
	}
	if name == "" {
		return storage.Handle{}, fmt.Errorf("%w: output", errBadArgument)
	}
	return h.uploader.Upload(ctx, name, data, getString(req, "if_match", ""))
}

// outputName derives a result file name from a source file name.
func outputName(filename, ext string) string {
	if filename == "" {
		return ""
	}
	return strings.TrimSuffix(filename, path.Ext(filename)) + ext
}

var errBadArgument = errors.New("invalid argument")

func getString(req mcp.CallToolRequest, key, def string) string {
	if v, ok := req.GetArguments()[key].(string); ok {
		return v
	}
	return def
}

func requireString(req mcp.CallToolRequest, key string) (string, error) {
	v, ok := req.GetArguments()[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s", errBadArgument, key)
	}
	return v, nil
}

// getInt accepts JSON numbers and numeric strings. Fractions are rejected.
func getInt(req mcp.CallToolRequest, key string) (int, bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, true, fmt.Errorf("%w: %s must be an integer", errBadArgument, key)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, true, fmt.Errorf("%w: %s must be an integer", errBadArgument, key)
		}
		return n, true, nil
	}
	return 0, true, fmt.Errorf("%w: %s must be an integer", errBadArgument, key)
}

func requireInt(req mcp.CallToolRequest, key string) (int, error) {
	n, ok, err := getInt(req, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", errBadArgument, key)
	}
	return n, nil
}

func getBool(req mcp.CallToolRequest, key string, def bool) bool {
	switch v := req.GetArguments()[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}
