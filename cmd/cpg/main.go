package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"cpg/internal/config"
	"cpg/internal/crawler"
	"cpg/internal/frontend"
	"cpg/internal/frontend/cxx"
	"cpg/internal/frontend/gosrc"
	"cpg/internal/frontend/pysrc"
	"cpg/internal/graph"
	"cpg/internal/passes"
	"cpg/internal/storage"
	"cpg/internal/translate"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "cpg",
		Short: "Multi-language code property graph builder",
	}
	configPath  string
	verbose     bool
	includeRoot string
	jobs        int
	dbPath      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the build configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&includeRoot, "include-root", "", "Directory searched for quoted includes (overrides the config)")
	rootCmd.PersistentFlags().IntVar(&jobs, "jobs", 0, "Parallel parse workers (overrides the config)")
	exportCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides the config)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(exportCmd)
}

func setup() (*config.Config, *frontend.Registry, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if includeRoot != "" {
		cfg.Build.IncludeRoot = includeRoot
	}
	if jobs > 0 {
		cfg.Build.Jobs = jobs
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cxxOpts := []cxx.Option{cxx.WithLogger(logger)}
	if cfg.Build.IncludeRoot != "" {
		cxxOpts = append(cxxOpts, cxx.WithIncludePaths(cfg.Build.IncludeRoot))
	}

	registry := frontend.NewRegistry()
	registry.Register(func() frontend.Frontend { return cxx.New(cxxOpts...) })
	registry.Register(func() frontend.Frontend { return gosrc.New(gosrc.WithLogger(logger)) })
	registry.Register(func() frontend.Frontend { return pysrc.New(pysrc.WithLogger(logger)) })

	return cfg, registry, logger, nil
}

// selectPasses maps configured pass names to instances, defaulting to
// the canonical order when the list is empty. Unknown names fail the
// build instead of silently weakening it.
func selectPasses(names []string) ([]passes.Pass, error) {
	if len(names) == 0 {
		return passes.Canonical(), nil
	}
	available := append(passes.Canonical(), passes.NewCallGraphClosure())
	byName := make(map[string]passes.Pass, len(available))
	for _, p := range available {
		byName[p.Name()] = p
	}
	var out []passes.Pass
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown pass %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

func buildGraph(ctx context.Context, root string) ([]*graph.TranslationUnitDecl, *translate.Report, error) {
	cfg, registry, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}

	enabled, err := selectPasses(cfg.Passes.Enabled)
	if err != nil {
		return nil, nil, err
	}

	files, err := crawler.New(registry, cfg.Build.Ignored).Discover(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no supported source files under %s", root)
	}

	manager := translate.NewManager(registry,
		translate.WithPasses(enabled),
		translate.WithJobs(cfg.Build.Jobs),
		translate.WithStrict(cfg.Build.Strict),
		translate.WithFixpointCap(cfg.Passes.FixpointCap),
		translate.WithLogger(logger),
	)
	result, err := manager.Build(ctx, files)
	if err != nil {
		return nil, nil, err
	}
	return result.Units, result.Report, nil
}

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Parse the project and build the code property graph",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		units, report, err := buildGraph(cmd.Context(), root)
		if err != nil {
			log.Fatalf("Build failed: %v", err)
		}

		nodes := 0
		for _, unit := range units {
			graph.Walk(unit, func(graph.Node) bool {
				nodes++
				return true
			})
		}

		fmt.Printf("Built %d translation units (%d nodes) in %v\n", report.Parsed, nodes, report.Duration)
		for _, skip := range report.Skipped {
			fmt.Printf("  skipped %s: %s\n", skip.File, skip.Reason)
		}
		for _, timing := range report.Timings {
			fmt.Printf("  %-24s %v\n", timing.Pass, timing.Duration)
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Build the graph and export it to the configured SQLite database",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		ctx := cmd.Context()

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if dbPath != "" {
			cfg.Export.Database = dbPath
		}

		units, report, err := buildGraph(ctx, root)
		if err != nil {
			log.Fatalf("Build failed: %v", err)
		}

		store, err := storage.NewSQLiteStore(cfg.Export.Database)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		if err := store.SaveUnits(ctx, units); err != nil {
			log.Fatalf("Failed to save graph: %v", err)
		}

		nodes, err := store.CountNodes(ctx)
		if err != nil {
			log.Fatalf("Failed to verify export: %v", err)
		}
		edges, err := store.CountEdges(ctx, "")
		if err != nil {
			log.Fatalf("Failed to verify export: %v", err)
		}

		fmt.Printf("Exported %d units: %d nodes, %d edges -> %s (built in %v)\n",
			report.Parsed, nodes, edges, cfg.Export.Database, report.Duration)
	},
}
