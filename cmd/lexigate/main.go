package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/japaniel/lexigate/pkg/config"
	"github.com/japaniel/lexigate/pkg/curriculum"
	"github.com/japaniel/lexigate/pkg/db"

	_ "github.com/mattn/go-sqlite3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the state shared by all commands.
type app struct {
	configPath  string
	dbPath      string
	phrasesPath string
	verbose     bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lexigate",
		Short:         "Content-integrity checks for bilingual micro-curricula",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			zcfg := zap.NewProductionConfig()
			if cfg.Logging.Development {
				zcfg = zap.NewDevelopmentConfig()
			}
			level, err := zapcore.ParseLevel(cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			if a.verbose {
				level = zapcore.DebugLevel
			}
			zcfg.Level = zap.NewAtomicLevelAt(level)
			a.logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to policy YAML")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "lexigate.db", "Path to SQLite database")
	root.PersistentFlags().StringVar(&a.phrasesPath, "phrases", "", "Extra JSON array of phrases to load with the curriculum")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.importCmd(),
		a.checkCmd(),
		a.swapsCmd(),
		a.replaceUnitCmd(),
		a.historyCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lexigate version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lexigate %s\n", version)
		},
	}
}

// openDB opens and migrates the configured database.
func (a *app) openDB() (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	a.logger.Debug("database ready", zap.String("path", a.dbPath))
	return conn, nil
}

// loadCurriculum reads and validates a curriculum file. Structural problems
// are logged and returned alongside the surviving records.
func (a *app) loadCurriculum(path string) (*curriculum.Curriculum, []curriculum.LoadIssue, error) {
	doc, err := curriculum.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if a.phrasesPath != "" {
		extra, bad, err := curriculum.LoadPhrasesFile(a.phrasesPath)
		if err != nil {
			return nil, nil, err
		}
		doc.Phrases = append(doc.Phrases, extra...)
		doc.DecodeIssues = append(doc.DecodeIssues, bad...)
	}
	c, issues := doc.Validate()
	for _, is := range issues {
		a.logger.Warn("record dropped",
			zap.String("record", is.Record),
			zap.String("id", is.ID),
			zap.String("kind", string(is.Kind)),
			zap.String("error", is.Err))
	}
	a.logger.Info("curriculum loaded",
		zap.String("path", path),
		zap.Int("seeds", len(c.Seeds)),
		zap.Int("phrases", len(c.Phrases)),
		zap.Int("dropped", len(issues)))
	return c, issues, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
