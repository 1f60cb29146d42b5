package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/gqlexec/internal/config"
	"github.com/hanpama/gqlexec/internal/demo"
	"github.com/hanpama/gqlexec/internal/eventbus"
	"github.com/hanpama/gqlexec/internal/executor"
	"github.com/hanpama/gqlexec/internal/introspection"
	"github.com/hanpama/gqlexec/internal/logging"
	"github.com/hanpama/gqlexec/internal/mapping"
	"github.com/hanpama/gqlexec/internal/otel"
	"github.com/hanpama/gqlexec/internal/schema"
	"github.com/hanpama/gqlexec/internal/server"
)

const rootUsage = `gqlexec: GraphQL execution engine

USAGE:
  gqlexec <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL endpoint over the built-in demo schema
  check            Map a query against an SDL schema and report errors
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>     YAML configuration file (default: $CONFIG_PATH or config.yaml)
  -addr <addr>       HTTP listen address, overrides server.listen_addr
  -print-schema      Print the demo schema SDL and exit
`

const checkUsage = `check FLAGS:
  -schema <file>     GraphQL SDL file (required)
  -query <file>      GraphQL query document (required)
  -operation <name>  Operation to map when the document has several
  (Exits non-zero when mapping reports errors)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := args[0]
	cmdArgs := args[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stdout, stderr)
	case "check":
		return cmdCheck(cmdArgs, stdout, stderr)
	case "help", "-h", "--help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "check":
		fmt.Fprint(stdout, checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdServe(args []string, stdout, stderr io.Writer) error {
	configPath := ""
	addr := ""
	printSchema := false

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "YAML configuration file")
	fs.StringVar(&addr, "addr", addr, "HTTP listen address")
	fs.BoolVar(&printSchema, "print-schema", printSchema, "Print the demo schema SDL")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	if printSchema {
		s, err := demo.NewSchema(demo.NewStore())
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, schema.Render(s))
		return nil
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.ListenAddr = addr
	}

	level, err := logging.ZapLogLevelFromString(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.New(!cfg.Log.JSON, cfg.Log.Development, level)
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	shutdownTracing, err := otel.Setup(cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	h, closeHandler, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}
	defer closeHandler()

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("GraphQL server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout+time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newHandler wires the demo schema, mapping cache and executor into the HTTP
// handler described by cfg.
func newHandler(cfg *config.Config, logger *zap.Logger) (http.Handler, func(), error) {
	sch, err := demo.NewSchema(demo.NewStore())
	if err != nil {
		return nil, nil, err
	}
	cache, err := mapping.NewCache(mapping.NewMapper(sch), cfg.Engine.MappingCacheSize, logger)
	if err != nil {
		return nil, nil, err
	}
	exec := executor.NewExecutor(sch, append(cfg.Engine.ExecutorOptions(), executor.WithLogger(logger))...)

	sopts := []server.Option{server.WithLogger(logger), server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Server.RequestTimeout > 0 {
		sopts = append(sopts, server.WithTimeout(cfg.Server.RequestTimeout))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h, err := server.New(cache, exec, sopts...)
	if err != nil {
		cache.Close()
		return nil, nil, fmt.Errorf("server init: %w", err)
	}
	return h, cache.Close, nil
}

func cmdCheck(args []string, stdout, stderr io.Writer) error {
	schemaFile := ""
	queryFile := ""
	operation := ""
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&queryFile, "query", queryFile, "GraphQL query document")
	fs.StringVar(&operation, "operation", operation, "Operation name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, checkUsage)
		return err
	}
	if schemaFile == "" || queryFile == "" {
		fmt.Fprint(stderr, checkUsage)
		return fmt.Errorf("-schema and -query are required")
	}

	sdl, err := os.ReadFile(schemaFile)
	if err != nil {
		return err
	}
	query, err := os.ReadFile(queryFile)
	if err != nil {
		return err
	}
	sch, err := schema.BuildFromSDL(string(sdl))
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	if err := introspection.Install(sch); err != nil {
		return err
	}

	cache, err := mapping.NewCache(mapping.NewMapper(sch), 0, nil)
	if err != nil {
		return err
	}
	defer cache.Close()
	op, errs := cache.Load(string(query), operation)
	if len(errs) > 0 {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(errs); err != nil {
			return err
		}
		return fmt.Errorf("%d mapping error(s)", len(errs))
	}
	name := op.Name
	if name == "" {
		name = "(anonymous)"
	}
	fmt.Fprintf(stdout, "ok: %s %s on %s, %d variable(s), %d fragment(s)\n",
		op.Kind, name, op.RootType.Name, len(op.Variables), len(op.Fragments))
	return nil
}
