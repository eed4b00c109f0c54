package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/chat"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/docset"
	"github.com/kalambet/folio/internal/indexer"
	"github.com/kalambet/folio/internal/logging"
	"github.com/kalambet/folio/internal/storage"
	"github.com/kalambet/folio/internal/tui"
)

func newSessionManager(a *assistant) *chat.Manager {
	return chat.NewManager(a.orch, a.store, a.generator.Model(),
		chat.WithGreeting(chat.Greeting(a.cfg.Chat.CanonicalName)),
	)
}

// loadQuiet loads config and routes logs away from the terminal UI.
func loadQuiet() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, io.Discard)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(logger)
	return cfg, nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat panel in the terminal",
	Long: `Open the chat panel in the terminal.

Keys:
  ctrl+t        open or close the panel
  enter         send the message
  alt+1..alt+4  send a quick suggestion
  q / ctrl+c    quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadQuiet()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		printStep("Preparing %s engine...", cfg.Engine.Backend)
		a, err := newAssistant(ctx, cfg, stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		session := chat.NewSession(a.orch, a.store, a.generator.Model(), chat.Greeting(cfg.Chat.CanonicalName))
		model := tui.New(ctx, session, a.docs, a.suggestions, a.local()).
			WithSubject(cfg.Chat.CanonicalName)
		_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("a question is required")
		}
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := loadQuiet()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		a, err := newAssistant(ctx, cfg, io.Discard)
		if err != nil {
			return err
		}
		defer a.Close()

		reply := a.orch.Answer(ctx, question)
		recordCLI(ctx, a, question, reply)
		fmt.Fprintln(cmd.OutOrStdout(), reply.Content)

		if verbose {
			printStatus("Path", "%s", reply.Path)
			if len(reply.DocIDs) > 0 {
				printStatus("Documents", "%s", strings.Join(reply.DocIDs, ", "))
			}
			printStatus("Took", "%s", reply.Duration.Round(time.Millisecond))
		}
		return nil
	},
}

// recordCLI logs a one-shot answer under the "cli" session.
func recordCLI(ctx context.Context, a *assistant, question string, reply chat.Reply) {
	err := a.store.SaveInteraction(ctx, storage.Interaction{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		SessionID:  "cli",
		Query:      question,
		Answer:     reply.Content,
		Path:       reply.Path,
		DocIDs:     reply.DocIDs,
		Model:      a.generator.Model(),
		DurationMS: reply.Duration.Milliseconds(),
	})
	if err != nil {
		slog.Warn("failed to record interaction", "error", err)
	}
}

func init() {
	askCmd.Flags().BoolP("verbose", "v", false, "show how the answer was produced")
}

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or inspect the document set",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build <dir>",
	Short: "Build index.json from Markdown, text, HTML and PDF files",
	Long: `Build index.json from a directory of Markdown, text, HTML and PDF files.

Markdown and text files become one document per heading section. Document
ids are <file stem>-<n>.

Examples:
  folio index build ./content --out docs/chat/index.json
  folio index build ./content --base-url https://example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		baseURL, _ := cmd.Flags().GetString("base-url")

		docs, err := indexer.Build(cmd.Context(), args[0], indexer.Options{
			BaseURL: baseURL,
			Logger:  slog.New(slog.NewTextHandler(stderr, nil)),
		})
		if err != nil {
			return err
		}

		if out == "-" {
			return indexer.Write(cmd.OutOrStdout(), docs)
		}
		if err := indexer.WriteFile(out, docs); err != nil {
			return err
		}
		printSuccess("Wrote %d documents to %s", len(docs), out)
		return nil
	},
}

var indexShowCmd = &cobra.Command{
	Use:   "show [source]",
	Short: "List the documents of an index file or URL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := ""
		if len(args) == 1 {
			source = args[0]
		} else {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			source = cfg.Docs.Source
		}

		docs, err := docset.Fetch(cmd.Context(), source)
		if err != nil {
			return err
		}
		printDocuments(cmd.OutOrStdout(), docs)
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().String("out", filepath.Join("docs", "chat", "index.json"), "output file, or - for stdout")
	indexBuildCmd.Flags().String("base-url", "", "site URL prefix for document links")
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexShowCmd)
}

func printDocuments(w io.Writer, docs []docset.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %s\n", colorize(colorCyan, d.ID), d.Title)
		if d.URL != "" {
			fmt.Fprintf(w, "    %s\n", colorize(colorDim, d.URL))
		}
		fmt.Fprintf(w, "    %s\n", truncate(d.Text, 100))
	}
	fmt.Fprintf(w, "\n%d documents\n", len(docs))
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Inspect the interaction log of a running server",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		session, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		interactions, err := listInteractions(cmd.Context(), client, session, limit)
		if err != nil {
			return err
		}
		printInteractions(cmd.OutOrStdout(), interactions)
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interactions/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var interaction storage.Interaction
		if err := decodeJSON(resp, &interaction); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(interaction)
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsListCmd.Flags().String("session", "", "only interactions of this session")
	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
}

func listInteractions(ctx context.Context, client *apiClient, session string, limit int) ([]storage.Interaction, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if session != "" {
		q.Set("session", session)
	}
	resp, err := client.get(ctx, "/interactions?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var interactions []storage.Interaction
	if err := decodeJSON(resp, &interactions); err != nil {
		return nil, err
	}
	return interactions, nil
}

func printInteractions(w io.Writer, interactions []storage.Interaction) {
	if len(interactions) == 0 {
		fmt.Fprintln(w, "No interactions found.")
		return
	}
	for _, ix := range interactions {
		id := ix.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s  %s  %-8s  %s\n",
			colorize(colorCyan, id),
			ix.CreatedAt.Local().Format("2006-01-02 15:04"),
			ix.Path,
			truncate(ix.Query, 80),
		)
	}
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", config.FilePath())
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: fmt.Sprintf(`Set a configuration value in the config file.

Secrets (engine.api_key, server.admin_token) are only read from the
environment and cannot be set here.

Keys: %s`, strings.Join(config.ValidKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
