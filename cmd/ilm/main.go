package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"ilmhub/internal/app"
	"ilmhub/internal/config"
	"ilmhub/internal/database"
	"ilmhub/internal/encryption"
	"ilmhub/internal/ilm"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := app.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(exitCode(err))
	}
}

// describe prefixes the error with the category a user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, ilm.ErrSlugExhausted):
		return "no free slug for this title, retry: " + err.Error()
	case errors.Is(err, ilm.ErrNotFound):
		return "not found: " + err.Error()
	case errors.Is(err, ilm.ErrValidationFailure):
		return "invalid input: " + err.Error()
	case errors.Is(err, ilm.ErrConstraintViolation):
		return "not allowed: " + err.Error()
	case errors.Is(err, ilm.ErrConcurrentModification):
		return "node changed concurrently, retry: " + err.Error()
	case errors.Is(err, encryption.ErrNotConfigured):
		return err.Error() + " (run `ilm keys setup`)"
	default:
		return err.Error()
	}
}

// exitCode maps the error taxonomy to process exit codes. 5 means the same
// command may succeed when run again.
func exitCode(err error) int {
	switch {
	case ilm.Retryable(err):
		return 5
	case errors.Is(err, ilm.ErrNotFound):
		return 3
	case errors.Is(err, ilm.ErrValidationFailure), errors.Is(err, ilm.ErrConstraintViolation):
		return 4
	default:
		return 1
	}
}

func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates an ILMApp. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "CreateNode", "Revert").
func newApp(cmd *cobra.Command, operation string, params ...string) (*app.ILMApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewILMApp(cmd.Context(), cfg, app.Options{Verbose: verbose}, operation, params...)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func actor(cmd *cobra.Command) string {
	if a, _ := cmd.Flags().GetString("actor"); a != "" {
		return a
	}
	return os.Getenv("USER")
}

func readPassphrase(prompt string) (string, error) {
	if env := os.Getenv("ILM_PASSPHRASE"); env != "" {
		return env, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printNode(n *ilm.Node) {
	fmt.Printf("%s  %s\n", n.Slug, n.Title)
	fmt.Printf("  id:       %s\n", n.ID)
	fmt.Printf("  path:     %s (level %d)\n", n.Path, n.Level)
	fmt.Printf("  status:   %s\n", n.Status)
	if n.Summary != "" {
		fmt.Printf("  summary:  %s\n", n.Summary)
	}
	fmt.Printf("  versions: %d  views: %d\n", n.VersionCount, n.ViewCount)
	fmt.Printf("  updated:  %s\n", n.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printNodes(nodes []*ilm.Node) {
	if len(nodes) == 0 {
		fmt.Println("No nodes.")
		return
	}
	for _, n := range nodes {
		fmt.Printf("%s%-30s  %s\n", strings.Repeat("  ", n.Level), n.Slug, n.Title)
	}
}

func printTree(nodes []*ilm.TreeNode, depth int) {
	for _, n := range nodes {
		fmt.Printf("%s%s (%d)\n", strings.Repeat("  ", depth), n.Title, n.ReferenceCount)
		printTree(n.Children, depth+1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ilm",
	Short:         "Hierarchical knowledge base with versioned content",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Run `ilm db migrate` to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Slug Index: %s\n", cfg.SlugIndex.Type)
		fmt.Printf("Search:     %s\n", cfg.Search.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Diff Mode:  %s\n", cfg.Versioning.DiffMode)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database schema",
}

func openDatabase() (database.Database, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}
	return database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if s, ok := db.(*database.SQLiteDatabase); ok {
			st, err := s.MigrationStatus()
			if err != nil {
				return err
			}
			fmt.Printf("Schema version %d of %d (dirty: %v)\n", st.Current, st.Latest, st.Dirty)
		}
		if err := db.CheckMigrations(); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// node command
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Create, inspect and arrange nodes",
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		summary, _ := cmd.Flags().GetString("summary")
		status, _ := cmd.Flags().GetString("status")
		contentFile, _ := cmd.Flags().GetString("content")

		var blocks []ilm.Block
		if contentFile != "" {
			data, err := readInput(contentFile)
			if err != nil {
				return err
			}
			if blocks, err = app.ParseContent(data); err != nil {
				return err
			}
		}

		a, err := newApp(cmd, "CreateNode", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.CreateNode(cmd.Context(), parent, ilm.NewNode{
			Title:   args[0],
			Summary: summary,
			Status:  ilm.Status(status),
			Content: blocks,
			Actor:   actor(cmd),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created %s at %s\n", n.Slug, n.Path)
		return nil
	},
}

var nodeGetCmd = &cobra.Command{
	Use:   "get SLUG|ID",
	Short: "Show a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd, "GetNode")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.GetNode(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(n)
		}
		printNode(n)
		return nil
	},
}

var nodeChildrenCmd = &cobra.Command{
	Use:   "children SLUG|ID",
	Short: "List the children of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Children")
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.Children(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printNodes(nodes)
		return nil
	},
}

var nodeSubtreeCmd = &cobra.Command{
	Use:   "subtree PATH",
	Short: "List a node and everything below it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Subtree")
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.Subtree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printNodes(nodes)
		return nil
	},
}

var nodeBreadcrumbCmd = &cobra.Command{
	Use:   "breadcrumb SLUG|ID",
	Short: "Show the path from the root to a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Breadcrumb")
		if err != nil {
			return err
		}
		defer a.Close()

		crumbs, err := a.Breadcrumb(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		titles := make([]string, len(crumbs))
		for i, c := range crumbs {
			titles[i] = c.Title
		}
		fmt.Println(strings.Join(titles, " > "))
		return nil
	},
}

var nodeTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the knowledge tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd, "KnowledgeTree")
		if err != nil {
			return err
		}
		defer a.Close()

		tree, err := a.KnowledgeTree(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(tree)
		}
		if len(tree) == 0 {
			fmt.Println("No nodes.")
		}
		printTree(tree, 0)
		return nil
	},
}

var nodeUpdateCmd = &cobra.Command{
	Use:   "update SLUG|ID",
	Short: "Change title, summary or status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd ilm.MetadataUpdate
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			upd.Title = &v
		}
		if cmd.Flags().Changed("summary") {
			v, _ := cmd.Flags().GetString("summary")
			upd.Summary = &v
		}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			s := ilm.Status(v)
			upd.Status = &s
		}

		a, err := newApp(cmd, "UpdateMetadata", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.UpdateMetadata(cmd.Context(), args[0], upd)
		if err != nil {
			return err
		}
		printNode(n)
		return nil
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete SLUG|ID",
	Short: "Soft delete a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteNode", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteNode(cmd.Context(), args[0], actor(cmd)); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var nodeMoveCmd = &cobra.Command{
	Use:   "move SLUG|ID [NEW_PARENT]",
	Short: "Move a node (and its subtree) under a new parent; no parent makes it a root",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Move", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		parent := ""
		if len(args) > 1 {
			parent = args[1]
		}
		n, err := a.Move(cmd.Context(), args[0], parent, actor(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("Moved %s to %s\n", n.Slug, n.Path)
		return nil
	},
}

var nodeVerifyCmd = &cobra.Command{
	Use:   "verify SLUG|ID",
	Short: "Check that stored path and level match the parent chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "VerifyHierarchy")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.VerifyHierarchy(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Hierarchy is consistent.")
		return nil
	},
}

// content command
var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Commit and inspect versioned content",
}

// readInput reads a file, or stdin for "-".
func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

var contentCommitCmd = &cobra.Command{
	Use:   "commit SLUG|ID [FILE]",
	Short: "Commit new content from FILE (JSON blocks or text; default stdin)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "-"
		if len(args) > 1 {
			name = args[1]
		}
		data, err := readInput(name)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "CommitContent", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.CommitContent(cmd.Context(), args[0], bytes.NewReader(data), actor(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("%s is now at v%d\n", n.Slug, n.VersionCount)
		return nil
	},
}

var contentVersionsCmd = &cobra.Command{
	Use:   "versions SLUG|ID",
	Short: "List the versions of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListVersions")
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.ListVersions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No versions.")
			return nil
		}
		for _, v := range versions {
			fmt.Printf("%-4s  %s  %-12s  %d change(s)\n",
				v.Label(),
				v.ChangedAt.Format("2006-01-02 15:04:05"),
				v.ChangedBy,
				len(v.Changes),
			)
		}
		return nil
	},
}

var contentShowCmd = &cobra.Command{
	Use:   "show SLUG|ID VERSION",
	Short: "Show one version and its changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd, "GetVersion")
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.GetVersion(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(v)
		}

		fmt.Printf("%s by %s at %s\n\n", v.Label(), v.ChangedBy, v.ChangedAt.Format("2006-01-02 15:04:05"))
		fmt.Println(ilm.PlainText(v.ContentBlocks))
		if len(v.Changes) > 0 {
			fmt.Println("\nChanges:")
			for _, c := range v.Changes {
				fmt.Printf("  [%s %s] %s\n", c.Kind, c.BlockID, c.Diff)
			}
		}
		return nil
	},
}

var contentRevertCmd = &cobra.Command{
	Use:   "revert SLUG|ID VERSION",
	Short: "Commit the content of an earlier version as a new version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Revert", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Revert(cmd.Context(), args[0], args[1], actor(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("Reverted %s to %s; now at v%d\n", n.Slug, args[1], n.VersionCount)
		return nil
	},
}

// search commands
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search node titles and content",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "Search")
		if err != nil {
			return err
		}
		defer a.Close()

		hits, err := a.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, h := range hits {
			fmt.Printf("%-30s  %s\n", h.Path, h.Title)
			if h.Snippet != "" {
				fmt.Printf("    %s\n", h.Snippet)
			}
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Reindex")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d node(s)\n", n)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage archive encryption keys",
}

var keysSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate the archive key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		a, err := newApp(cmd, "SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetupEncryption(pass); err != nil {
			return err
		}
		fmt.Println("Encryption keys created.")
		return nil
	},
}

// archive commands
var exportCmd = &cobra.Command{
	Use:   "export SLUG|ID",
	Short: "Archive a node and its versions to the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Export", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Archived %s (%d version(s), %d bytes, encrypted: %v)\n", ref.Slug, ref.Versions, ref.Size, ref.Encrypted)
		fmt.Printf("Key: %s\n", ref.Key)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import KEY",
	Short: "Restore an archived node from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		pass := ""
		if cfg.Encryption.Type == "" || cfg.Encryption.Type == "age" {
			if pass, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		a, err := newApp(cmd, "Import", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Import(cmd.Context(), args[0], pass, actor(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("Restored %s at %s (%d version(s))\n", n.Slug, n.Path, n.VersionCount)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-7s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().String("actor", "", "Name recorded on changes (default $USER)")
	rootCmd.SetContext(context.Background())

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)

	// node subcommands
	nodeCmd.AddCommand(nodeCreateCmd)
	nodeCreateCmd.Flags().StringP("parent", "p", "", "Parent slug or id (default: new root)")
	nodeCreateCmd.Flags().String("summary", "", "Short summary")
	nodeCreateCmd.Flags().String("status", "", "draft, published or archived (default draft)")
	nodeCreateCmd.Flags().StringP("content", "c", "", "Initial content file (- for stdin)")
	nodeCmd.AddCommand(nodeGetCmd)
	nodeGetCmd.Flags().Bool("json", false, "Print the node as JSON")
	nodeCmd.AddCommand(nodeChildrenCmd)
	nodeCmd.AddCommand(nodeSubtreeCmd)
	nodeCmd.AddCommand(nodeBreadcrumbCmd)
	nodeCmd.AddCommand(nodeTreeCmd)
	nodeTreeCmd.Flags().Bool("json", false, "Print the tree as JSON")
	nodeCmd.AddCommand(nodeUpdateCmd)
	nodeUpdateCmd.Flags().String("title", "", "New title")
	nodeUpdateCmd.Flags().String("summary", "", "New summary")
	nodeUpdateCmd.Flags().String("status", "", "New status")
	nodeCmd.AddCommand(nodeDeleteCmd)
	nodeCmd.AddCommand(nodeMoveCmd)
	nodeCmd.AddCommand(nodeVerifyCmd)

	// content subcommands
	contentCmd.AddCommand(contentCommitCmd)
	contentCmd.AddCommand(contentVersionsCmd)
	contentCmd.AddCommand(contentShowCmd)
	contentShowCmd.Flags().Bool("json", false, "Print the version as JSON")
	contentCmd.AddCommand(contentRevertCmd)

	keysCmd.AddCommand(keysSetupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 20, "Maximum number of results")
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
