// Package mcpadapter exposes document operations as MCP tools over stdio so
// agent runtimes can drive the review workflow.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

type Server struct {
	mcp *server.MCPServer

	reader    ports.DocumentReader
	processor ports.DocumentProcessor
	updater   ports.DocumentUpdater
	generator ports.DocumentGenerator
}

func NewServer(
	reader ports.DocumentReader,
	processor ports.DocumentProcessor,
	updater ports.DocumentUpdater,
	generator ports.DocumentGenerator,
) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"papersmith",
			"1.0.0",
			server.WithToolCapabilities(false),
		),
		reader:    reader,
		processor: processor,
		updater:   updater,
		generator: generator,
	}
	s.registerTools()
	return s
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents with their processing status, newest first."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Fetch one document including its extracted fields."),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("Document id")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("process_document",
		mcp.WithDescription("Run AI extraction for an uploaded document."),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("Document id")),
	), s.processDocument)

	s.mcp.AddTool(mcp.NewTool("generate_document",
		mcp.WithDescription("Generate a branded output file from a processed document."),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("format", mcp.Description("Output format: pdf, docx or xlsx. Defaults to pdf.")),
	), s.generateDocument)

	s.mcp.AddTool(mcp.NewTool("set_field_value",
		mcp.WithDescription("Set the value of a scalar field, or one cell of a table field when row and column are given."),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("fieldId", mcp.Required(), mcp.Description("Field id, e.g. field_3")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
		mcp.WithNumber("row", mcp.Description("Table row index; row 0 is the header")),
		mcp.WithNumber("column", mcp.Description("Table column index")),
	), s.setFieldValue)

	s.mcp.AddTool(mcp.NewTool("remove_table_row",
		mcp.WithDescription("Remove one data row from a table field. The header and the last data row stay."),
		mcp.WithString("documentId", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("fieldId", mcp.Required(), mcp.Description("Field id of the table")),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row index to remove; must be >= 1")),
	), s.removeTableRow)
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.reader.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type summary struct {
		ID          string `json:"id"`
		Filename    string `json:"filename"`
		Status      string `json:"status"`
		TotalFields int    `json:"totalFields"`
	}
	out := make([]summary, 0, len(docs))
	for _, doc := range docs {
		item := summary{ID: doc.ID, Filename: doc.OriginalFileName, Status: string(doc.Status)}
		if doc.ExtractedData != nil {
			item.TotalFields = len(doc.ExtractedData.Fields)
		}
		out = append(out, item)
	}
	return jsonResult(out)
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("documentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) processDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("documentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.processor.Process(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) generateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("documentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := req.GetString("format", "pdf")

	file, err := s.generator.Generate(ctx, id, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"filename": file.Filename,
		"mimeType": file.MIMEType,
		"bytes":    len(file.Content),
	})
}

func (s *Server) setFieldValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("documentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID, err := req.RequireString("fieldId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.editField(ctx, id, fieldID, func(field *domain.Field) error {
		if field.Value.IsTable() {
			row := req.GetInt("row", -1)
			col := req.GetInt("column", -1)
			if row < 0 || col < 0 {
				return domain.WrapError(domain.ErrInvalidInput, "set field value",
					fmt.Errorf("table field %s needs row and column", fieldID))
			}
			return field.SetTableCell(row, col, value)
		}
		field.Value = domain.ScalarValue(value)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (s *Server) removeTableRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("documentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID, err := req.RequireString("fieldId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := req.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.editField(ctx, id, fieldID, func(field *domain.Field) error {
		return field.RemoveTableRow(row)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

// editField loads the document, applies one field mutation and writes the
// whole extracted payload back through the validating updater.
func (s *Server) editField(ctx context.Context, id, fieldID string, edit func(*domain.Field) error) (*domain.Document, error) {
	doc, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ExtractedData == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "edit field",
			fmt.Errorf("document %s has no extracted data", id))
	}
	field := doc.ExtractedData.FieldByID(fieldID)
	if field == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "edit field",
			fmt.Errorf("field %s not found", fieldID))
	}
	if err := edit(field); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return nil, fmt.Errorf("marshal extracted data: %w", err)
	}
	return s.updater.Patch(ctx, id, ports.UpdateRequest{ExtractedData: payload})
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
