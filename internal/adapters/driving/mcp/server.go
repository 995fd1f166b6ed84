package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

const (
	// ServerName identifies the server to connecting assistants.
	ServerName = "sercha-rag"

	// Version is the MCP server version.
	Version = "0.1.0"

	httpShutdownTimeout = 5 * time.Second
)

// Server exposes grounded question answering and document search as MCP
// tools, and the document catalogue as MCP resources.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer validates ports and registers the ask and search_documents
// tools along with the document resources.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports}
	s.server = mcp.NewServer(
		&mcp.Implementation{Name: ServerName, Version: Version},
		&mcp.ServerOptions{Instructions: instructions(ports)},
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// instructions tells the assistant when to reach for each tool.
func instructions(ports *Ports) string {
	var b strings.Builder
	b.WriteString("Use ask to answer a question from the ingested documents. ")
	b.WriteString("The answer cites its sources and may include live web results when the documents fall short. ")
	b.WriteString("Pass conversation_id from a previous answer to ask a follow-up. ")
	b.WriteString("Use search_documents to fetch matching passages without generating an answer.")
	if ports.Documents != nil {
		b.WriteString(" Read " + uriScheme + "documents to find document IDs for doc_ids.")
	}
	return b.String()
}

// Run serves JSON-RPC over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler. Every session shares the
// same tool set.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled, then drains open sessions.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
