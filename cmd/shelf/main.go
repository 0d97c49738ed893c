package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/shelf/internal/catalog"
	"github.com/pders01/shelf/internal/config"
	"github.com/pders01/shelf/internal/debuglog"
	"github.com/pders01/shelf/internal/feed"
	"github.com/pders01/shelf/internal/media"
	"github.com/pders01/shelf/internal/plugins"
	"github.com/pders01/shelf/internal/plugins/user"
	"github.com/pders01/shelf/internal/query"
	"github.com/pders01/shelf/internal/storage"
	"github.com/pders01/shelf/internal/tui"
	"github.com/pders01/shelf/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	quiet      bool
	filters    string
	force      bool
)

var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Terminal storefront",
	Long: `shelf browses product catalogs imported from merchant feeds, with a
faceted filter drawer, full-text search and a product reader.`,
	SilenceUsage: true,
	RunE:         runBrowse,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shelf %s\n", Version)
		fmt.Println("Terminal storefront")
		fmt.Println("github.com/pders01/shelf")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		configFile := filepath.Join(config.Dir(), "config.toml")
		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <url>...",
	Short: "Import merchant feeds or storefront URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import the built-in demo catalog",
	RunE:  runSeed,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh every imported source",
	RunE:  runRefresh,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Skip startup banner")
	rootCmd.Flags().StringVar(&filters, "filters", "", "Initial query, e.g. 'q=mouse&str=brand:Acme&rng=price:20-80'")
	refreshCmd.Flags().BoolVar(&force, "force", false, "Ignore cache headers and the refresh interval")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(versionCmd, configCmd, importCmd, seedCmd, refreshCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env holds everything the commands share.
type env struct {
	cfg     *config.Config
	store   *storage.Store
	index   *catalog.Index
	catalog *catalog.Catalog
	manager *feed.Manager
}

func (e *env) Close() {
	if e.index != nil {
		_ = e.index.Close()
	}
	if e.store != nil {
		_ = e.store.Close()
	}
	_ = debuglog.Close()
}

// setup loads the configuration and opens the store, the index and the
// catalog. The feed manager reports every change to the catalog.
func setup() (*env, error) {
	if configPath != "" {
		clean, err := validation.CleanPath(configPath)
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		configPath = clean
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	e := &env{cfg: cfg}
	path, err := validation.EnsureParentDir(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	if e.store, err = storage.NewStore(path, cfg.Database.Timeout); err != nil {
		return nil, err
	}

	indexPath := ""
	if cfg.Database.SearchIndex != "" && path != ":memory:" {
		if indexPath, err = validation.CleanPath(cfg.Database.SearchIndex); err != nil {
			e.Close()
			return nil, fmt.Errorf("search index path: %w", err)
		}
	}
	if e.index, err = catalog.OpenIndex(indexPath); err != nil {
		e.Close()
		return nil, err
	}

	schema, err := catalog.LoadSchema(cfg.Catalog.Schema)
	if err != nil {
		e.Close()
		return nil, err
	}
	if err := schema.Validate(); err != nil {
		e.Close()
		return nil, fmt.Errorf("facet schema: %w", err)
	}

	e.catalog = catalog.New(e.store, e.index, schema)
	if err := e.catalog.Load(); err != nil {
		e.Close()
		return nil, err
	}

	registry := plugins.NewRegistry(cfg.Import.HTTPTimeout)
	user.RegisterAll(registry)

	e.manager = feed.NewManager(e.store, cfg)
	e.manager.SetPlugins(registry)
	e.manager.AddUpdateListener(e.catalog)
	e.manager.AddDeleteListener(e.catalog)

	debuglog.Infof("shelf %s started: db=%s products=%d", Version, path, e.catalog.Len())
	return e, nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	initial := catalog.Request{}
	if filters != "" {
		req, err := query.Parse(filters)
		if err != nil {
			return fmt.Errorf("--filters: %w", err)
		}
		initial = req
	}

	if !quiet {
		tui.ShowBanner(Version)
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.catalog.Len() == 0 {
		if _, n, seedErr := e.manager.Seed(); seedErr != nil {
			debuglog.Warnf("seeding demo catalog: %v", seedErr)
		} else {
			debuglog.Infof("seeded %d demo products", n)
		}
	}

	launcher := media.NewLauncher(filepath.Join(config.Dir(), "openers.toml"))
	app := tui.NewApp(e.cfg, e.store, e.catalog, e.manager, launcher)
	if filters != "" {
		app.SetRequest(initial)
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := e.manager.Import(ctx, args...)
	for _, r := range results {
		switch {
		case errors.Is(r.Err, feed.ErrNotModified):
			fmt.Printf("  %s: not modified\n", r.URL)
		case r.Err != nil:
			fmt.Printf("✗ %s: %v\n", r.URL, r.Err)
		default:
			fmt.Printf("✓ %s: %d products (%s)\n", r.URL, r.Products, r.Source.Title)
		}
	}
	if err != nil {
		return fmt.Errorf("import finished with errors")
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	src, n, err := e.manager.Seed()
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	fmt.Printf("Seeded %d products from %s\n", n, src.Title)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e.manager.SetForceRefresh(force)
	refreshErr := e.manager.Refresh(ctx)
	count, _ := e.catalog.DocCount()
	fmt.Printf("Refreshed sources • idx: %d docs\n", count)
	if refreshErr != nil {
		return refreshErr
	}
	return nil
}
