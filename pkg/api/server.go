// Package api provides the gateway's HTTP surface, wiring Echo v5 routes
// to the planner/store/orchestrator/stream components — the same
// Server{echo, deps...} + setupRoutes shape as the teacher's pkg/api, with
// the dashboard's alert/trace/timeline handlers replaced by log query,
// chat, and ETL visibility handlers.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/logwatch/pkg/config"
	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/etl"
	"github.com/codeready-toolchain/logwatch/pkg/llm"
	"github.com/codeready-toolchain/logwatch/pkg/logstore"
	"github.com/codeready-toolchain/logwatch/pkg/orchestrator"
	"github.com/codeready-toolchain/logwatch/pkg/planner"
	"github.com/codeready-toolchain/logwatch/pkg/redaction"
	"github.com/codeready-toolchain/logwatch/pkg/store"
	"github.com/codeready-toolchain/logwatch/pkg/stream"
	"github.com/codeready-toolchain/logwatch/pkg/tools"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg          *config.Config
	dbClient     *db.Client
	planner      *planner.Planner
	logStore     *logstore.Store
	toolRegistry *tools.Registry
	sessionStore *store.Store
	jobStates    *etl.JobStateStore
	deadLetters  *etl.DeadLetterSink
	orch         *orchestrator.Orchestrator
	streams      *stream.Manager
}

// New builds the server and registers every route. llmClient/redactor are
// passed in already-built (callers like cmd/gateway decide the concrete
// implementation).
func New(
	cfg *config.Config,
	dbClient *db.Client,
	p *planner.Planner,
	logStore *logstore.Store,
	toolRegistry *tools.Registry,
	sessionStore *store.Store,
	jobStates *etl.JobStateStore,
	deadLetters *etl.DeadLetterSink,
	llmClient llm.Client,
	redactor *redaction.Redactor,
) *Server {
	e := echo.New()

	s := &Server{
		echo:         e,
		cfg:          cfg,
		dbClient:     dbClient,
		planner:      p,
		logStore:     logStore,
		toolRegistry: toolRegistry,
		sessionStore: sessionStore,
		jobStates:    jobStates,
		deadLetters:  deadLetters,
		streams:      stream.NewManager(),
	}

	s.orch = orchestrator.New(llmClient, toolRegistry, sessionStore, redactor, orchestrator.Config{
		TokenBudgetMax:      cfg.TokenBudgetMax,
		ToolFanoutMax:       cfg.ToolFanoutMax,
		MaxToolCallsPerTurn: cfg.MaxToolCallsPerTurn,
		RunTimeout:          cfg.RunTimeout,
		ToolTimeout:         cfg.ToolTimeout,
		Model:               cfg.LLMModel,
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	s.echo.POST("/api/chat", s.chatHandler)
	s.echo.POST("/api/chat/:run_id/cancel", s.cancelChatHandler)

	s.echo.GET("/api/logs", s.listLogsHandler)
	s.echo.GET("/api/logs/aggregate", s.aggregateLogsHandler)
	s.echo.GET("/api/traces/:trace_id", s.traceLookupHandler)

	s.echo.GET("/api/sessions", s.listSessionsHandler)
	s.echo.GET("/api/sessions/:id/messages", s.listMessagesHandler)
	s.echo.GET("/api/sessions/:id/stream", s.streamHandler)
	s.echo.GET("/api/sessions/:id/ws", s.streamWSHandler)

	s.echo.GET("/api/tools", s.listToolsHandler)

	s.echo.GET("/api/etl/jobs", s.listETLJobsHandler)
	s.echo.GET("/api/etl/deadletters", s.listDeadLettersHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, e.g.
// one bound to a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ShutdownGrace is the recommended context timeout for Shutdown, giving
// in-flight SSE streams a chance to drain before the listener closes.
const ShutdownGrace = 10 * time.Second
