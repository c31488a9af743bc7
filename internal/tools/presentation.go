package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-ooxml/pkg/ooxml"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerPresentationTools(s *server.MCPServer, h *Handler) {
	s.AddTool(mcp.NewTool("pptx_list_slides",
		mcp.WithDescription("Lists the slides of a presentation in display order."),
		mcp.WithReadOnlyHintAnnotation(true),
		sourceParam,
	), h.listSlides)

	s.AddTool(mcp.NewTool("pptx_list_shapes",
		mcp.WithDescription("Lists the shapes of one slide with their placeholder role and text."),
		mcp.WithReadOnlyHintAnnotation(true),
		sourceParam,
		mcp.WithNumber("slide", mcp.Required(), mcp.Description("0-based slide index.")),
	), h.listShapes)

	s.AddTool(mcp.NewTool("pptx_add_slide",
		mcp.WithDescription("Appends a blank slide with a title and a body placeholder."),
		sourceParam, outputParam, ifMatchParam,
	), h.addSlide)

	s.AddTool(mcp.NewTool("pptx_remove_slide",
		mcp.WithDescription("Removes a slide and the parts only it used."),
		sourceParam,
		mcp.WithNumber("slide", mcp.Required(), mcp.Description("0-based slide index.")),
		outputParam, ifMatchParam,
	), h.removeSlide)

	s.AddTool(mcp.NewTool("pptx_reorder_slide",
		mcp.WithDescription("Moves a slide. When to is after from the slide ends up at to-1."),
		sourceParam,
		mcp.WithNumber("from", mcp.Required(), mcp.Description("0-based index of the slide to move.")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("0-based target index.")),
		outputParam, ifMatchParam,
	), h.reorderSlide)

	s.AddTool(mcp.NewTool("pptx_set_shape_text",
		mcp.WithDescription("Writes text into a shape. Without shape the body placeholder is used, then the title, then the first shape."),
		sourceParam,
		mcp.WithNumber("slide", mcp.Required(), mcp.Description("0-based slide index.")),
		mcp.WithNumber("shape", mcp.Description("0-based shape index.")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text, one paragraph per line.")),
		mcp.WithString("format", mcp.Enum("text", "markdown"), mcp.Description("Markdown turns list items into bullets.")),
		mcp.WithBoolean("replace", mcp.Description("Replace existing paragraphs instead of appending. Default true.")),
		outputParam, ifMatchParam,
	), h.setShapeText)

	s.AddTool(mcp.NewTool("pptx_from_template",
		mcp.WithDescription("Creates a presentation from a .potx or .pptx template."),
		sourceParam, outputParam, ifMatchParam,
	), h.presentationFromTemplate)
}

func (h *Handler) listSlides(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := h.fetch(ctx, req, "source")
	if err != nil {
		return h.errorResult("pptx_list_slides", err), nil
	}
	slides, err := h.engine.ListSlides(src.Data)
	if err != nil {
		return h.errorResult("pptx_list_slides", err), nil
	}
	if slides == nil {
		slides = []ooxml.SlideInfo{}
	}
	return jsonResult(slides)
}

func (h *Handler) listShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slide, err := requireInt(req, "slide")
	if err != nil {
		return h.errorResult("pptx_list_shapes", err), nil
	}
	src, err := h.fetch(ctx, req, "source")
	if err != nil {
		return h.errorResult("pptx_list_shapes", err), nil
	}
	shapes, err := h.engine.ListShapes(src.Data, slide)
	if err != nil {
		return h.errorResult("pptx_list_shapes", err), nil
	}
	if shapes == nil {
		shapes = []ooxml.ShapeInfo{}
	}
	return jsonResult(shapes)
}

// mutatePresentation fetches source, applies op and stores the result.
func (h *Handler) mutatePresentation(ctx context.Context, req mcp.CallToolRequest, tool string, op func(src []byte) ([]byte, any, error)) (*mcp.CallToolResult, error) {
	src, err := h.fetch(ctx, req, "source")
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	out, detail, err := op(src.Data)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	handle, err := h.store(ctx, req, src.Filename, out)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	h.logger.WithFields(ooxml.Fields{"tool": tool, "output": handle.Name}).Info("stored %d bytes", handle.Size)
	return jsonResult(mutationResult{Output: handle, Detail: detail})
}

func (h *Handler) addSlide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.mutatePresentation(ctx, req, "pptx_add_slide", func(src []byte) ([]byte, any, error) {
		out, slide, err := h.engine.AddBlankSlide(src)
		return out, slide, err
	})
}

func (h *Handler) removeSlide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := requireInt(req, "slide")
	if err != nil {
		return h.errorResult("pptx_remove_slide", err), nil
	}
	return h.mutatePresentation(ctx, req, "pptx_remove_slide", func(src []byte) ([]byte, any, error) {
		out, slide, err := h.engine.RemoveSlide(src, index)
		return out, slide, err
	})
}

func (h *Handler) reorderSlide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := requireInt(req, "from")
	if err != nil {
		return h.errorResult("pptx_reorder_slide", err), nil
	}
	to, err := requireInt(req, "to")
	if err != nil {
		return h.errorResult("pptx_reorder_slide", err), nil
	}
	return h.mutatePresentation(ctx, req, "pptx_reorder_slide", func(src []byte) ([]byte, any, error) {
		out, err := h.engine.ReorderSlide(src, from, to)
		if err != nil {
			return nil, nil, err
		}
		slides, err := h.engine.ListSlides(out)
		return out, slides, err
	})
}

func (h *Handler) setShapeText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "pptx_set_shape_text"
	slide, err := requireInt(req, "slide")
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	text, ok := req.GetArguments()["text"].(string)
	if !ok {
		return h.errorResult(tool, fmt.Errorf("%w: text", errBadArgument)), nil
	}
	format, err := shapeTextFormat(getString(req, "format", "text"))
	if err != nil {
		return h.errorResult(tool, err), nil
	}

	request := ooxml.ShapeTextRequest{
		Slide:   slide,
		Text:    text,
		Format:  format,
		Replace: getBool(req, "replace", true),
	}
	shape, present, err := getInt(req, "shape")
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	if present {
		request.Shape = &shape
	}

	return h.mutatePresentation(ctx, req, tool, func(src []byte) ([]byte, any, error) {
		out, info, err := h.engine.SetShapeText(src, request)
		return out, info, err
	})
}

func shapeTextFormat(name string) (ooxml.SourceFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "plain", "text/plain":
		return ooxml.PlainText, nil
	case "markdown", "md", "text/markdown":
		return ooxml.Markdown, nil
	}
	return ooxml.PlainText, fmt.Errorf("%w: format must be \"text\" or \"markdown\", got %q", errBadArgument, name)
}

func (h *Handler) presentationFromTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "pptx_from_template"
	src, err := h.fetch(ctx, req, "source")
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	out, err := h.engine.PresentationFromTemplate(src.Data)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	handle, err := h.store(ctx, req, outputName(src.Filename, ".pptx"), out)
	if err != nil {
		return h.errorResult(tool, err), nil
	}
	return jsonResult(mutationResult{Output: handle})
}
