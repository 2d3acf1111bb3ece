// Command blk-lsp runs a diagnostics-only language server over stdio for
// the block-lowering pipeline.
package main

import (
	"log"
	"os"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"blocklang/internal/lsp"
)

const lsName = "blk-lsp"

var handler protocol.Handler

func main() {
	commonlog.Configure(1, nil)

	h := lsp.NewHandler()
	handler = protocol.Handler{
		Initialize:            h.Initialize,
		Initialized:           h.Initialized,
		Shutdown:              h.Shutdown,
		TextDocumentDidOpen:   h.TextDocumentDidOpen,
		TextDocumentDidChange: h.TextDocumentDidChange,
		TextDocumentDidClose:  h.TextDocumentDidClose,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Println("Starting blk-lsp server...")
	if err := s.RunStdio(); err != nil {
		log.Println("Error starting blk-lsp server:", err)
		os.Exit(1)
	}
}
