// Package mcpserver wires mark3labs/mcp-go into two tools sitting on top
// of the compiler: compile_query turns an MBQL envelope into SQL text and
// a parameter vector without touching a database; run_query does the same
// and then executes the statement through dbexec.
//
// Grounded on joaosoft-db-mcp/mcp/server.go, struct.go, and tool_query.go —
// the server.go/struct.go/tool_*.go family is the live tool-registration
// path in that package (mcp.go, mcp_tools.go, and the sql_*.go files define
// methods on an undeclared *DatabaseMCP type and duplicate the former set;
// see DESIGN.md).
package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/foucault-labs/mbqlsql/compiler"
	"github.com/foucault-labs/mbqlsql/dbexec"
	"github.com/foucault-labs/mbqlsql/dialect"
	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
)

const DefaultQueryTimeout = 30 * time.Second

// Server is the main struct for the MBQL MCP server: a dialect registry,
// a metadata store describing the tables/fields queries resolve against,
// an optional live database connection, and the underlying mcp-go server.
type Server struct {
	mcp   *server.MCPServer
	store metadata.Store
	dia   *dialect.Registry
	db    *sql.DB
	log   *logrus.Logger
}

// New builds a Server backed by store for metadata resolution and db for
// run_query execution (db may be nil — compile_query still works, and
// run_query reports ErrNoConnection).
func New(store metadata.Store, db *sql.DB, log *logrus.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"MBQL SQL Compiler",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		store: store,
		dia:   dialect.NewRegistry(),
		db:    db,
		log:   log,
	}
	s.registerTools()
	return s
}

// Start serves the MCP protocol over stdio until the client disconnects.
func (s *Server) Start() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(s.toolCompileQuery())
	s.mcp.AddTool(s.toolRunQuery())
}

func compileRequestSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"dialect": map[string]interface{}{
				"type":        "string",
				"description": "target SQL dialect: sql, mysql, postgres, sqlserver, oracle, or sqlite",
			},
			"query": map[string]interface{}{
				"type":        "object",
				"description": "MBQL outer query envelope: {\"database\": N, \"query\": {...}}",
			},
		},
		Required: []string{"dialect", "query"},
	}
}

func (s *Server) toolCompileQuery() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "compile_query",
		Description: "Compiles an MBQL query envelope into SQL text and a positional parameter vector for the given dialect, without executing it.",
		InputSchema: compileRequestSchema(),
	}, s.handleCompileQuery
}

func (s *Server) toolRunQuery() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.Tool{
		Name:        "run_query",
		Description: "Compiles an MBQL query envelope and executes it against the configured database connection, returning rows.",
		InputSchema: compileRequestSchema(),
	}, s.handleRunQuery
}

func (s *Server) handleCompileQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := uuid.NewString()

	compiled, _, err := s.compile(request)
	if err != nil {
		s.logf(requestID, "compile_query failed: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logf(requestID, "compile_query ok: %d params", len(compiled.Params))
	return mcp.NewToolResultText(fmt.Sprintf("%s\n%v", compiled.SQL, compiled.Params)), nil
}

func (s *Server) handleRunQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := uuid.NewString()

	if s.db == nil {
		return mcp.NewToolResultError(dbexec.ErrNoConnection.New().Error()), nil
	}

	compiled, _, err := s.compile(request)
	if err != nil {
		s.logf(requestID, "run_query compile failed: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := dbexec.Run(runCtx, s.db, compiled)
	if err != nil {
		s.logf(requestID, "run_query execution failed: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer rows.Close()

	results, columns, err := scanRows(rows)
	if err != nil {
		s.logf(requestID, "run_query scan failed: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logf(requestID, "run_query ok: %d rows", len(results))
	return mcp.NewToolResultText(fmt.Sprintf("columns=%v rows=%v", columns, results)), nil
}

func (s *Server) compile(request mcp.CallToolRequest) (*compiler.Compiled, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", fmt.Errorf("mcpserver: arguments must be an object")
	}

	dialectName, _ := args["dialect"].(string)
	if dialectName == "" {
		return nil, "", fmt.Errorf("mcpserver: dialect is required")
	}
	d, err := s.dia.Resolve(dialectName)
	if err != nil {
		return nil, "", err
	}

	queryObj, ok := args["query"]
	if !ok {
		return nil, "", fmt.Errorf("mcpserver: query is required")
	}
	raw, err := json.Marshal(queryObj)
	if err != nil {
		return nil, "", err
	}
	outer, err := mbql.ParseOuterQuery(raw)
	if err != nil {
		return nil, "", err
	}

	compiled, err := compiler.Compile(d, s.store, outer, s.log)
	if err != nil {
		return nil, "", err
	}
	return compiled, dialectName, nil
}

func (s *Server) logf(requestID, format string, args ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.WithField("request_id", requestID).Infof(format, args...)
}

// scanRows mirrors the teacher's handleExecuteQuery row-to-map scanning,
// truncating oversized binary columns to a placeholder description.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, []string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = formatValue(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return results, columns, nil
}

func formatValue(val interface{}) interface{} {
	switch v := val.(type) {
	case []byte:
		if len(v) > 1000 || !utf8.Valid(v) {
			return fmt.Sprintf("<binary data: %d bytes>", len(v))
		}
		return string(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
