package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/mcpserver"
)

var (
	serveLlmCmd     string
	serveWritePerMin int
	serveReadPerMin  int
	servePerTurnCap  int
	serveOtelStdout  bool
)

// serveRequest is one line of the stdio request stream: the transport
// wire protocol itself is out of scope (spec.md §1, "the MCP transport
// wire protocol" is an external collaborator with only its interface
// contract specified) — this is a minimal newline-delimited-JSON
// framing a real transport adapter would replace.
type serveRequest struct {
	Tool    string         `json:"tool"`
	Session string         `json:"session,omitempty"`
	Args    map[string]any `json:"args"`
}

type serveResponse struct {
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server over a newline-delimited JSON stdio stream",
	Long: `Wires the guard -> session -> rate limit -> tool execute -> audit
middleware stack to all 15 MCP tools and drives it from stdin/stdout.
The actual MCP wire protocol is out of scope here: this framing is a
placeholder a real transport adapter replaces, reading one JSON object
of the shape {"tool","session","args"} per line and writing one
{"outcome","detail","result","error"} object per line in response.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveOtelStdout {
			shutdown, err := mcpserver.InstallStdoutMeterProvider(os.Stderr)
			if err != nil {
				return internalError(fmt.Errorf("serve: install meter provider: %w", err))
			}
			defer func() { _ = shutdown(rootCtx) }()
		}

		guard := mcpserver.NewGuard(mcpserver.GuardOptions{})
		session := mcpserver.NewSessionTracker()
		limiter := mcpserver.NewRateLimiter(mcpserver.RateLimiterOptions{
			WritePerMin: serveWritePerMin,
			ReadPerMin:  serveReadPerMin,
			PerTurnCap:  servePerTurnCap,
		})
		audit := mcpserver.NewAuditLogger(os.Stderr)

		sc, err := mcpserver.NewServerContext(store, resolvedCfg.DBPath, guard, session, limiter, audit)
		if err != nil {
			return internalError(fmt.Errorf("serve: %w", err))
		}

		var invoker loop.LlmInvoker
		if serveLlmCmd != "" {
			invoker = &loop.SubprocessInvoker{Command: strings.Fields(serveLlmCmd)}
		}

		registry := mcpserver.NewRegistry()
		mcpserver.RegisterDefaultTools(registry, ev, reg)

		fmt.Fprintf(os.Stderr, "serve: listening on stdio (db=%s)\n", resolvedCfg.DBPath)
		return runServeLoop(rootCtx, registry, sc, invoker, os.Stdin, os.Stdout)
	},
}

func runServeLoop(ctx context.Context, registry *mcpserver.Registry, sc *mcpserver.ServerContext, invoker loop.LlmInvoker, in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req serveRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			_ = enc.Encode(serveResponse{Outcome: "error", Error: fmt.Sprintf("serve: malformed request: %v", err)})
			continue
		}

		sc.Args = req.Args
		if sc.Args == nil {
			sc.Args = make(map[string]any)
		}
		if invoker != nil {
			sc.Args["invoker"] = invoker
		}
		sc.Result = nil

		callErr := registry.Invoke(ctx, sc, mcpserver.Call{
			Tool:        req.Tool,
			SessionHint: req.Session,
			WriteBytes:  writeByteEstimate(req),
			ItemCount:   itemCountEstimate(req),
		})

		resp := serveResponse{Result: sc.Result}
		switch {
		case callErr == nil:
			resp.Outcome = "ok"
		default:
			var blocked *mcpserver.PolicyBlockedError
			if asPolicyBlocked(callErr, &blocked) {
				resp.Outcome = "blocked"
			} else {
				resp.Outcome = "error"
			}
			resp.Error = callErr.Error()
		}
		if err := enc.Encode(resp); err != nil {
			return internalError(fmt.Errorf("serve: write response: %w", err))
		}
	}
	return scanner.Err()
}

func asPolicyBlocked(err error, target **mcpserver.PolicyBlockedError) bool {
	for err != nil {
		if b, ok := err.(*mcpserver.PolicyBlockedError); ok {
			*target = b
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// writeByteEstimate sizes the guard's per-call write cap off the
// "content" argument when present, zero otherwise (pure reads).
func writeByteEstimate(req serveRequest) int {
	if content, ok := req.Args["content"].(string); ok {
		return len(content)
	}
	return 0
}

// itemCountEstimate sizes the guard's import batch cap off the "items"
// argument when present, zero for non-import tools.
func itemCountEstimate(req serveRequest) int {
	if items, ok := req.Args["items"].([]any); ok {
		return len(items)
	}
	return 0
}

func init() {
	serveCmd.Flags().StringVar(&serveLlmCmd, "llm-cmd", "", "subprocess command implementing the LLM side for ask/loop tools")
	serveCmd.Flags().IntVar(&serveWritePerMin, "write-per-min", mcpserver.DefaultWritePerMin, "write-class token bucket refill rate per session")
	serveCmd.Flags().IntVar(&serveReadPerMin, "read-per-min", mcpserver.DefaultReadPerMin, "read-class token bucket refill rate per session")
	serveCmd.Flags().IntVar(&servePerTurnCap, "per-turn-proposal-cap", 0, "cap on propose calls per turn (0 disables)")
	serveCmd.Flags().BoolVar(&serveOtelStdout, "otel-stdout", false, "emit OpenTelemetry metrics as JSON lines to stderr")
}
