package e2etest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/logging"
)

const (
	// LogAddrKey is the log attribute carrying the address the server listens on.
	LogAddrKey = "addr"
	// LogDsnKey is the log attribute carrying the read-write SQLite DSN.
	LogDsnKey = "sqlDsn"
)

// RunFunc has the signature of the server's run function.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is an in-process recoverfit server started by StartServer.
type Server struct {
	url    string
	client *Client
	db     *sql.DB
	stop   context.CancelCauseFunc
	done   chan struct{}
}

// startupAttrs picks the listen address and DSN out of the server's log stream.
type startupAttrs struct {
	addr chan string
	dsn  chan string
}

func (s startupAttrs) replace(_ []string, a slog.Attr) slog.Attr {
	var ch chan string
	switch a.Key {
	case LogAddrKey:
		ch = s.addr
	case LogDsnKey:
		ch = s.dsn
	default:
		return a
	}
	select {
	case ch <- a.Value.String():
	default:
	}
	return a
}

// StartServer runs the server in a goroutine and returns once /api/healthy answers. The server is shut down when the
// test ends. Logs go to logSink, usually testhelpers.NewWriter(t).
func StartServer(t *testing.T, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	ctx, stop := context.WithCancelCause(t.Context())
	done := make(chan struct{})

	attrs := startupAttrs{addr: make(chan string, 1), dsn: make(chan string, 1)}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: attrs.replace,
	})))

	go func() {
		defer close(done)
		if err := run(ctx, logger, lookupEnv); err != nil {
			stop(err)
		}
	}()
	server := &Server{url: "", client: nil, db: nil, stop: stop, done: done}
	t.Cleanup(server.Shutdown)

	var addr, dsn string
	for addr == "" || dsn == "" {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(context.Cause(ctx), "server stopped before it was ready")
		case addr = <-attrs.addr:
		case dsn = <-attrs.dsn:
		}
	}

	var err error
	server.url = "http://" + addr
	if server.client, err = NewClient(server.url); err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	if err = server.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	// The driver is registered by the server's sqlite package.
	if server.db, err = sql.Open("sqlite3", dsn); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return server, nil
}

// Client is the browser the server was probed with.
func (s *Server) Client() *Client {
	return s.client
}

// NewClient returns a client with its own cookie jar, acting as a separate browser.
func (s *Server) NewClient() (*Client, error) {
	return NewClient(s.url)
}

func (s *Server) URL() string {
	return s.url
}

// DB is a direct connection to the server's database for assertions.
func (s *Server) DB() *sql.DB {
	return s.db
}

// Shutdown stops the server and waits for run to return. Calling it more than once is safe.
func (s *Server) Shutdown() {
	s.stop(nil)
	<-s.done
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}
