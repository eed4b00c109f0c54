package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/engine"
	"github.com/kalambet/folio/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server, engine and document status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout")
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "folio version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return err
	}

	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		printWarning("folio is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newAssistant(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing resources", "error", err)
		}
	}()

	if cfg.Retrieval.Warm {
		a.warm(ctx)
	}
	if cfg.Docs.Watch {
		if err := a.watch(ctx); err != nil {
			slog.Warn("document watch disabled", "error", err)
		} else {
			slog.Info("watching document set", "source", cfg.Docs.Source)
		}
	}

	sessions := newSessionManager(a)
	go sessions.Run(ctx)

	if cfg.Server.AdminToken == "" {
		slog.Info("admin API disabled, set FOLIO_SERVER_ADMIN_TOKEN to enable it")
	}
	handler := api.NewRouter(
		api.NewChatHandler(api.ChatDeps{
			Sessions:    sessions,
			Docs:        a.docs,
			Suggestions: a.suggestions,
			Limiter:     api.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
		}),
		api.NewAdminHandler(api.AdminDeps{
			Store: a.store,
			Token: cfg.Server.AdminToken,
		}),
	)

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Assistant: a.orch,
			Docs:      a.docs,
			Store:     a.store,
			Recorder:  a.store,
			Model:     a.generator.Model(),
		}, version)
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("folio listening", "addr", addr, "engine", cfg.Engine.Backend, "model", cfg.Engine.GenerateModel)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.AdminToken,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	running := false
	if resp, err := client.get(ctx, "/health"); err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		running = resp.StatusCode == http.StatusOK
		if running {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	eng, err := engine.New(ctx, engine.Config{
		Backend: cfg.Engine.Backend,
		BaseURL: cfg.Engine.BaseURL,
		APIKey:  cfg.Engine.APIKey,
	})
	if err != nil {
		printStatus("Engine", "%v", err)
	} else {
		defer eng.Close()
		if eng.IsRunning(ctx) {
			printStatus("Engine", "%s reachable", cfg.Engine.Backend)
		} else {
			printStatus("Engine", "%s not reachable", cfg.Engine.Backend)
		}
	}

	printStatus("Generate model", "%s", cfg.Engine.GenerateModel)
	printStatus("Embed model", "%s", cfg.Engine.EmbedModel)
	printStatus("Documents", "%s", cfg.Docs.Source)

	if running && cfg.Server.AdminToken != "" {
		if counts, err := fetchStats(ctx, client); err == nil {
			printStatus("Interactions", "%s", formatCounts(counts))
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func fetchStats(ctx context.Context, client *apiClient) (map[string]int, error) {
	resp, err := client.get(ctx, "/interactions/stats")
	if err != nil {
		return nil, err
	}
	var counts map[string]int
	if err := decodeJSON(resp, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// formatCounts renders per-path counts as "total (faq 2, rag 5)".
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "0"
	}
	paths := make([]string, 0, len(counts))
	total := 0
	for p, n := range counts {
		paths = append(paths, p)
		total += n
	}
	sort.Strings(paths)
	s := fmt.Sprintf("%d (", total)
	for i, p := range paths {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %d", p, counts[p])
	}
	return s + ")"
}
