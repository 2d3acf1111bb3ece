// Package lsp implements a diagnostics-only language server handler: on
// every open/change it re-reads the document from disk and runs the
// lex-parse-lower pipeline over it, republishing whatever it finds as LSP
// diagnostics. Grounded in the teacher's internal/lsp/handler.go. Semantic
// tokens and completion are explicit non-goals here since the source
// language has no member/type resolution surface worth highlighting.
package lsp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"blocklang/internal/errors"
	"blocklang/internal/lower"
	"blocklang/internal/parser"
)

// Handler implements the LSP methods this server advertises.
type Handler struct{}

// NewHandler creates a Handler.
func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	diagnostics, err := h.diagnoseURI(params.TextDocument.URI)
	if err != nil {
		return err
	}
	sendDiagnostics(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	diagnostics, err := h.diagnoseURI(params.TextDocument.URI)
	if err != nil {
		return err
	}
	sendDiagnostics(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	return nil
}

// diagnoseURI re-reads the document named by uri from disk and runs the
// pipeline over it, mirroring the teacher's own disk-backed updateAST.
func (h *Handler) diagnoseURI(uri protocol.DocumentUri) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(string(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return diagnose(path, string(content)), nil
}

// diagnose runs the front end and lowerer and converts whatever error it
// hits, if any, into LSP diagnostics.
func diagnose(path, src string) []protocol.Diagnostic {
	prog, parseErrs, scanErrs := parser.ParseSource(path, src)
	if len(scanErrs) > 0 {
		return convertScanErrors(scanErrs)
	}
	if len(parseErrs) > 0 {
		return convertParseErrors(parseErrs)
	}

	if _, err := lower.LowerProgram(prog, lower.Options{}); err != nil {
		if ce, ok := err.(*errors.CompilerError); ok {
			return []protocol.Diagnostic{convertCompilerError(ce)}
		}
	}
	return []protocol.Diagnostic{}
}

func convertCompilerError(ce *errors.CompilerError) protocol.Diagnostic {
	line := uint32(0)
	col := uint32(0)
	if ce.Pos.Line > 0 {
		line = uint32(ce.Pos.Line - 1)
	}
	if ce.Pos.Column > 0 {
		col = uint32(ce.Pos.Column - 1)
	}
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("blk-lower"),
		Message:  fmt.Sprintf("[%s] %s", ce.Code, ce.Message),
	}
}

func convertParseErrors(parseErrs []errors.ParseError) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(parseErrs))
	for _, e := range parseErrs {
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(e.Pos.Line - 1), Character: uint32(e.Pos.Column - 1)},
				End:   protocol.Position{Line: uint32(e.Pos.Line - 1), Character: uint32(e.Pos.Column + 5)},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("blk-parser"),
			Message:  e.Message,
		})
	}
	return out
}

func convertScanErrors(scanErrs []errors.ScanError) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(scanErrs))
	for _, e := range scanErrs {
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(e.Pos.Line - 1), Character: uint32(e.Pos.Column - 1)},
				End:   protocol.Position{Line: uint32(e.Pos.Line - 1), Character: uint32(e.Pos.Column + 1)},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("blk-scanner"),
			Message:  e.Message,
		})
	}
	return out
}

func sendDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}
	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }

func ptrString(s string) *string { return &s }
