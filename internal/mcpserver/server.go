// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vaultlens selection tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/viewservice"
)

const noteFormatURI = "vaultlens://note-format"

// Server wraps the MCP server with vaultlens tools.
type Server struct {
	mcp *server.MCPServer
	svc *viewservice.Service
}

// New creates a new MCP server with all vaultlens tools registered.
func New(svc *viewservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"vaultlens",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_selection",
		mcp.WithDescription("List the notes in the current selection, in display order, "+
			"together with the active options and whether today's daily note exists."),
	), s.listSelection)

	s.mcp.AddTool(mcp.NewTool("list_all_files",
		mcp.WithDescription("List every note in the current scope (daily notes, folder or tag), ignoring the time range."),
	), s.listAllFiles)

	s.mcp.AddTool(mcp.NewTool("update_selection",
		mcp.WithDescription("Change the selection options. Omitted fields keep their current value. "+
			"Changing mode or target rebuilds the selection; changing the time range refilters it."),
		mcp.WithString("mode", mcp.Description("Selection mode"),
			mcp.Enum(string(selection.ModeDaily), string(selection.ModeFolder), string(selection.ModeTag))),
		mcp.WithString("target", mcp.Description("Folder path in folder mode, tag (e.g. #work) in tag mode")),
		mcp.WithString("time_range", mcp.Description("Time window"),
			mcp.Enum(
				string(selection.RangeAll), string(selection.RangeTodayAfter),
				string(selection.RangeWeek), string(selection.RangeMonth),
				string(selection.RangeQuarter), string(selection.RangeYear),
				string(selection.RangeLastWeek), string(selection.RangeLastMonth),
				string(selection.RangeLastQuarter), string(selection.RangeLastYear),
				string(selection.RangeCustom),
			)),
		mcp.WithString("time_field", mcp.Description("Ordering field"),
			mcp.Enum(
				string(selection.FieldCTime), string(selection.FieldMTime), string(selection.FieldName),
				string(selection.FieldCTimeReverse), string(selection.FieldMTimeReverse), string(selection.FieldNameReverse),
			)),
		mcp.WithString("custom_start", mcp.Description("Start of a custom range (YYYY-MM-DD or RFC 3339)")),
		mcp.WithString("custom_end", mcp.Description("End of a custom range, inclusive (YYYY-MM-DD or RFC 3339)")),
	), s.updateSelection)

	s.mcp.AddTool(mcp.NewTool("check_daily_note",
		mcp.WithDescription("Report whether today's daily note exists."),
	), s.checkDailyNote)

	s.mcp.AddTool(mcp.NewTool("create_daily_note",
		mcp.WithDescription("Create today's daily note from the configured template. Only valid in daily mode."),
	), s.createDailyNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"Read the format contract first via the get_note_contract tool or the "+noteFormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note format contract: frontmatter fields, tag syntax and daily-note naming."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown note format vaultlens reads when building selections."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Selection(ctx))
}

func (s *Server) listAllFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.AllFiles(ctx))
}

func (s *Server) updateSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var patch selection.OptionsPatch
	if v := req.GetString("mode", ""); v != "" {
		m := selection.Mode(v)
		patch.Mode = &m
	}
	if v := req.GetString("target", ""); v != "" {
		patch.Target = &v
	}
	if v := req.GetString("time_range", ""); v != "" {
		r := selection.TimeRange(v)
		patch.TimeRange = &r
	}
	if v := req.GetString("time_field", ""); v != "" {
		f := selection.TimeField(v)
		patch.TimeField = &f
	}

	start, end := req.GetString("custom_start", ""), req.GetString("custom_end", "")
	if start != "" || end != "" {
		cr, err := parseCustomRange(start, end)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch.CustomRange = cr
	}

	snap, err := s.svc.UpdateOptions(ctx, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snap)
}

// parseCustomRange accepts dates or RFC 3339 instants. A bare end date
// covers that whole day.
func parseCustomRange(start, end string) (*selection.CustomRange, error) {
	if start == "" || end == "" {
		return nil, errors.New("custom_start and custom_end must be given together")
	}
	s, _, err := parseInstant(start)
	if err != nil {
		return nil, fmt.Errorf("custom_start: %w", err)
	}
	e, dateOnly, err := parseInstant(end)
	if err != nil {
		return nil, fmt.Errorf("custom_end: %w", err)
	}
	if dateOnly {
		e = e.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if e.Before(s) {
		return nil, errors.New("custom_end is before custom_start")
	}
	return &selection.CustomRange{Start: s, End: e}, nil
}

func parseInstant(v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, false, err
}

func (s *Server) checkDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.svc.CheckDailyNote(ctx) {
		return mcp.NewToolResultText("today's daily note exists"), nil
	}
	return mcp.NewToolResultText("today's daily note does not exist"), nil
}

func (s *Server) createDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.svc.CreateDailyNote(ctx)
	switch {
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("today's daily note already exists"), nil
	case errors.Is(err, apperr.ErrNotDailyMode):
		return mcp.NewToolResultError("selection is not in daily mode; switch with update_selection first"), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", doc.Path)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.CreateNote(ctx, path, []byte(content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Path)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
