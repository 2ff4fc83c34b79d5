package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/logicfirst/tutor/internal/codeval"
	"github.com/logicfirst/tutor/internal/engine"
	"github.com/logicfirst/tutor/internal/gaming"
	"github.com/logicfirst/tutor/internal/httpapi"
	appI18n "github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/llm"
	"github.com/logicfirst/tutor/internal/logicval"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
	"github.com/logicfirst/tutor/internal/state"
	"github.com/logicfirst/tutor/internal/store"
	"github.com/logicfirst/tutor/internal/understanding"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "Conversational programming tutor powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, chatCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `tutor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags registers the flags shared by serve and chat.
func commonFlags(f *pflag.FlagSet) {
	f.String("db", "tutor.db", "SQLite database path")
	f.StringSliceP("problems", "p", []string{"problems/lists_en.json"}, "Paths to problems JSON files (repeatable)")
	f.String("state-driver", "memory", "Validation state driver (memory, redis)")
	f.String("redis-addr", "localhost:6379", "Redis address for the redis state driver")
	f.Float64("expansion-ratio", 1.3, "Minimum elaboration ratio before a repeated answer counts as gaming")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Response language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP tutoring server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	commonFlags(f)
	return cmd
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a tutoring session in the terminal",
		RunE:  runChat,
	}
	f := cmd.Flags()
	f.StringP("user", "u", "", "Student identifier (required)")
	f.String("assignment", "", "Assignment identifier (required)")
	commonFlags(f)

	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("assignment")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export assignment sessions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "tutor.db", "SQLite database path")
	f.String("assignment", "", "Assignment identifier to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("assignment")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tutor")
	v.AddConfigPath("/etc/tutor")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// buildEngine wires the full validation stack from configuration: database,
// validation-state store, LLM client, validators, and the session engine.
func buildEngine(v *viper.Viper) (*engine.Engine, *store.Store, error) {
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	if err := loadProblems(db, v.GetStringSlice("problems")); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load problems: %w", err)
	}

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}

	var stateOpts []state.Option
	driver := v.GetString("state-driver")
	if driver == "redis" {
		stateOpts = append(stateOpts, state.WithRedisClient(redis.NewClient(&redis.Options{
			Addr: v.GetString("redis-addr"),
		})))
	}
	states, err := state.New(driver, stateOpts...)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create state store: %w", err)
	}

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		slog.Warn("LLM endpoint unreachable, falling back to template responses",
			"url", v.GetString("llm-url"), "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	responder := scenario.NewResponder(llmClient)
	detector := gaming.NewDetector(gaming.WithExpansionRatio(v.GetFloat64("expansion-ratio")))

	eng := engine.New(engine.Config{
		Store:         db,
		States:        states,
		Logic:         logicval.NewValidator(detector, logicval.NewAnalyzer(llmClient), responder),
		Code:          codeval.NewValidator(responder),
		Understanding: understanding.NewVerifier(responder),
		Responder:     responder,
	})
	return eng, db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	eng, db, err := buildEngine(v)
	if err != nil {
		return err
	}
	defer db.Close()

	lang := v.GetString("lang")
	h := httpapi.New(eng, lang)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"state_driver", v.GetString("state-driver"),
	)
	return http.ListenAndServe(addr, r)
}

func runChat(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	eng, db, err := buildEngine(v)
	if err != nil {
		return err
	}
	defer db.Close()

	lang := v.GetString("lang")
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	start, err := eng.StartSession(ctx, v.GetString("user"), v.GetString("assignment"))
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Println(start.Message)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}

		result, err := eng.ProcessTurn(ctx, start.Session.ID, text)
		if err != nil {
			return fmt.Errorf("process turn: %w", err)
		}
		fmt.Println()
		fmt.Println(result.Response)
		for _, q := range result.Questions {
			fmt.Println("  - " + q)
		}
		fmt.Println()
		if result.Completed {
			sess, _, err := eng.Transcript(ctx, start.Session.ID)
			if err != nil {
				return fmt.Errorf("check session: %w", err)
			}
			if sess.Status != model.SessionActive {
				break
			}
		}
	}
	return scanner.Err()
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAssignment(v.GetString("assignment"))
	if err != nil {
		return fmt.Errorf("export assignment: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func loadProblems(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var problems []model.ProblemImport
		if err := json.Unmarshal(data, &problems); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		imported, err := db.ImportProblems(problems)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if imported == 0 {
			slog.Info("problems file unchanged, skipping", "path", path)
		} else {
			slog.Info("imported problems", "path", path, "count", imported)
		}
	}
	return nil
}
