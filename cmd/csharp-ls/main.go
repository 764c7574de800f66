// Command csharp-ls is a Language Server Protocol server for C# solutions.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/csharp-ls/csharp-ls-go/backend"
	"github.com/csharp-ls/csharp-ls-go/diagnostics"
	"github.com/csharp-ls/csharp-ls-go/lsp"
	"github.com/csharp-ls/csharp-ls-go/metadata"
	"github.com/csharp-ls/csharp-ls-go/router"
	"github.com/csharp-ls/csharp-ls-go/state"
)

func main() {
	cmd := &cli.Command{
		Name:  "csharp-ls",
		Usage: "Language Server Protocol server for C# solutions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "solution", Usage: "path to a .sln or .csproj; discovered from the workspace root when omitted"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn, or error"},
			&cli.StringFlag{Name: "logfile", Usage: "log file path, in addition to window/logMessage"},
			&cli.BoolFlag{Name: "trace", Usage: "log handler entry/exit, very verbose"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, io.EOF) || err.Error() == "closed" {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "csharp-ls:", err)
		os.Exit(3)
	}
}

func run(ctx context.Context, cmd *cli.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("csharp-ls: panic during startup: %v", r)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, "csharp-ls: stdin is a terminal; this server expects to be spawned by an editor over stdio")
	}

	level := parseLevel(cmd.String("log-level"))
	if cmd.Bool("trace") {
		level = zapcore.DebugLevel
	}

	startupConfig := zap.NewDevelopmentConfig()
	startupConfig.OutputPaths = []string{"stderr"}
	startupConfig.ErrorOutputPaths = []string{"stderr"}
	startupConfig.Level = zap.NewAtomicLevelAt(level)
	startupLogger, err := startupConfig.Build()
	if err != nil {
		return err
	}

	stream := jsonrpc2.NewStream(&readWriteCloser{os.Stdin, os.Stdout})
	conn := jsonrpc2.NewConn(stream)
	client := protocol.ClientDispatcher(conn, startupLogger)

	stderrCore, err := buildStderrCore(cmd.String("logfile"), level, startupLogger)
	if err != nil {
		return err
	}
	logger := lsp.NewLSPLogger(client, stderrCore, level)
	logger.Info("csharp-ls: connection established")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	be := backend.NewCSharpBackend()
	onTick := diagnostics.NewPublisher(be, client, logger)
	actor := state.NewActor(logger, onTick)
	metaCache := metadata.New(be, actor)
	server := lsp.NewServer(actor, be, metaCache, client, logger, cancel)

	go actor.Run(runCtx, state.Options{SolutionPath: cmd.String("solution"), LogLevel: cmd.String("log-level")})
	go diagnostics.New(actor).Start(runCtx)

	rt := router.New(logger)
	conn.Go(runCtx, rt.Wrap(server.Handler()))

	<-conn.Done()
	return conn.Err()
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func buildStderrCore(logfile string, level zapcore.Level, startupLogger *zap.Logger) (zapcore.Core, error) {
	if logfile == "" {
		return zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		), nil
	}
	file, err := os.OpenFile(logfile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		startupLogger.Warn("csharp-ls: failed to open logfile, falling back to stderr", zap.Error(err))
		return zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		), nil
	}
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(file),
		level,
	), nil
}

// readWriteCloser wraps stdin/stdout into a single io.ReadWriteCloser.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
