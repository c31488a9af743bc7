package tools

import (
	"context"
	"fmt"

	"github.com/benjaminschreck/go-ooxml/pkg/ooxml"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var contentParams = []mcp.ToolOption{
	mcp.WithString("content", mcp.Description("Inline content to import.")),
	mcp.WithString("content_source", mcp.Description("Path or URL to import instead of inline content.")),
	mcp.WithString("mime_type", mcp.Description("Format of the content: text/markdown, text/html, text/plain, application/xml, message/rfc822 or a .docx type. Defaults to what the source declares, then its file name.")),
	mcp.WithString("filename", mcp.Description("File name used to guess the format when no type is known.")),
}

func registerDocumentTools(s *server.MCPServer, h *Handler) {
	s.AddTool(mcp.NewTool("docx_from_text",
		mcp.WithDescription("Creates a document whose paragraphs are the blank-line separated blocks of text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Document text.")),
		mcp.WithString("output", mcp.Required(), mcp.Description("File name for the result.")),
		ifMatchParam,
	), h.documentFromText)

	s.AddTool(mcp.NewTool("docx_from_content",
		withOptions(
			mcp.WithDescription("Creates a document that imports Markdown, HTML, text, XML, MHT or another .docx."),
			mcp.WithString("output", mcp.Required(), mcp.Description("File name for the result.")),
			ifMatchParam,
		)...,
	), h.documentFromContent)

	s.AddTool(mcp.NewTool("docx_append_content",
		withOptions(
			mcp.WithDescription("Appends imported content to the end of a document."),
			sourceParam, outputParam, ifMatchParam,
		)...,
	), h.appendContent)

	s.AddTool(mcp.NewTool("docx_from_template",
		withOptions(
			mcp.WithDescription("Creates a document from a .dotx or .docx template, optionally importing content into it."),
			sourceParam, outputParam, ifMatchParam,
		)...,
	), h.documentFromTemplate)

	s.AddTool(mcp.NewTool("docx_replace_tracked",
		mcp.WithDescription("Replaces the first case-insensitive match in every paragraph as a tracked change and turns on change tracking."),
		sourceParam,
		mcp.WithString("search", mcp.Required(), mcp.Description("Text to find.")),
		mcp.WithString("replace", mcp.Description("Replacement text. Empty records a deletion only.")),
		outputParam, ifMatchParam,
	), h.replaceTracked)
}

func withOptions(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts, contentParams...)
}

// content is import input resolved from the tool arguments.
type content struct {
	data     []byte
	mimeType string
	filename string
}

// loadContent reads inline content or fetches content_source. An explicit
// mime_type or filename argument wins over what the source declares.
func (h *Handler) loadContent(ctx context.Context, req mcp.CallToolRequest, optional bool) (content, bool, error) {
	c := content{
		mimeType: getString(req, "mime_type", ""),
		filename: getString(req, "filename", ""),
	}
	inline, hasInline := req.GetArguments()["content"].(string)
	ref := getString(req, "content_source", "")

	switch {
	case hasInline && ref != "":
		return c, false, fmt.Errorf("%w: give content or content_source, not both", errBadArgument)
	case hasInline:
		c.data = []byte(inline)
		if c.mimeType == "" && c.filename == "" {
			c.mimeType = "text/plain"
		}
	case ref != "":
		src, err := h.fetcher.Fetch(ctx, ref)
		if err != nil {
			return c, false, err
		}
		c.data = src.Data
		if c.mimeType == "" {
			c.mimeType = src.MimeType
		}
		if c.filename == "" {
			c.filename = src.Filename
		}
	case optional:
		return c, false, nil
	default:
		return c, false, fmt.Errorf("%w: content or content_source", errBadArgument)
	}
	return c, true, nil
}

func (h *Handler) storeDocument(ctx context.Context, req mcp.CallToolRequest, tool, fallback string, out []byte, detail any) (*mcp.CallToolResult, error) {
	handle, err := h.store(ctx, req, fallback, out)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	h.logger.WithFields(ooxml.Fields{"tool": tool, "output": handle.Name}).Info("stored %d bytes", handle.Size)
	return jsonResult(mutationResult{Output: handle, Detail: detail})
}

func (h *Handler) documentFromText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "docx_from_text"
	text, ok := req.GetArguments()["text"].(string)
	if !ok {
		return h.errorResult(tool, fmt.Errorf("%w: text", errBadArgument)), nil
	}
	out, err := h.engine.DocumentFromText(text)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	return h.storeDocument(ctx, req, tool, "", out, nil)
}

func (h *Handler) documentFromContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "docx_from_content"
	c, _, err := h.loadContent(ctx, req, false)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	out, err := h.engine.DocumentFromContent(c.mimeType, c.filename, c.data)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	return h.storeDocument(ctx, req, tool, outputName(c.filename, ".docx"), out, nil)
}

func (h *Handler) appendContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "docx_append_content"
	src, err := h.fetch(ctx, req, "source")
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	c, _, err := h.loadContent(ctx, req, false)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	out, err := h.engine.AppendContent(src.Data, c.mimeType, c.filename, c.data)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	return h.storeDocument(ctx, req, tool, src.Filename, out, nil)
}

func (h *Handler) documentFromTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "docx_from_template"
	src, err := h.fetch(ctx, req, "source")
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	c, _, err := h.loadContent(ctx, req, true)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	out, err := h.engine.DocumentFromTemplate(src.Data, c.mimeType, c.filename, c.data)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	return h.storeDocument(ctx, req, tool, outputName(src.Filename, ".docx"), out, nil)
}

type replaceDetail struct {
	Paragraphs int `json:"paragraphs_changed"`
}

func (h *Handler) replaceTracked(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "docx_replace_tracked"
	// the engine rejects an empty search
	search := getString(req, "search", "")
	src, err := h.fetch(ctx, req, "source")
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	out, changed, err := h.engine.ReplaceWithTracking(src.Data, search, getString(req, "replace", ""))
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	return h.storeDocument(ctx, req, tool, src.Filename, out, replaceDetail{Paragraphs: changed})
}
