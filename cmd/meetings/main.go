// meetings - консольный клиент планировщика мероприятий.
//
// Использование:
//
//	meetings [-config path] [-ephemeral] [-no-input] [-metrics-addr addr] <command> [flags]
//
// Команды соответствуют маршрутам клиента; shell открывает интерактивную оболочку.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/app"
	"github.com/evgeniyfimushkin/event-planner/internal/config"
	"github.com/evgeniyfimushkin/event-planner/internal/views"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Коды завершения.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()

	os.Exit(code)
}

// run разбирает аргументы, собирает клиент и выполняет одну команду (или оболочку).
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("meetings", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  string
		ephemeral   bool
		noInput     bool
		metricsAddr string
	)
	fs.StringVar(&configPath, "config", "", "path to config file")
	fs.BoolVar(&ephemeral, "ephemeral", false, "keep the session in memory only")
	fs.BoolVar(&noInput, "no-input", false, "never prompt; use flags and defaults only")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "serve client metrics on this address")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		usage(fs)
		return exitUsage
	}

	name := fs.Arg(0)
	shell := name == "shell"

	cmd, ok := commands[name]
	if !ok && !shell {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		usage(fs)
		return exitUsage
	}

	values := views.Values{}
	if !shell {
		var err error
		values, err = cmd.parse(fs.Args()[1:], stderr)
		if err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return exitOK
			}
			return exitUsage
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	log := setupLogger(cfg.Env, stderr)
	slog.SetDefault(log)

	lines := views.NewLines(stdin, stderr)

	var input views.Prompter = views.Chain{values, lines}
	if noInput {
		input = views.Chain{values}
	}
	afterLogin := ""
	if shell {
		input = views.Chain{lines}
		afterLogin = views.PathEvents
	}

	a, err := app.New(ctx, app.Options{
		Config:     cfg,
		Logger:     log,
		Input:      input,
		Out:        stdout,
		Ephemeral:  ephemeral,
		AfterLogin: afterLogin,
	})
	if err != nil {
		log.Error("app_init_failed", slog.String("err", err.Error()))
		return exitError
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Warn("app_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	// Сбой хранилища уже залогирован: продолжаем без сессии.
	_ = a.Restore(ctx)

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, a, log)
		defer stop()
	}

	if shell {
		return runShell(ctx, a, lines, stdout)
	}

	if err := a.Navigate(ctx, cmd.path); err != nil {
		log.Debug("command_failed", slog.String("command", name), slog.String("err", err.Error()))
		return exitError
	}

	return exitOK
}

// serveMetrics поднимает /metrics клиента; возвращает функцию остановки.
func serveMetrics(addr string, a *app.App, log *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Warn("metrics_listen_failed", slog.String("addr", addr), slog.String("err", err.Error()))
		return func() {}
	}

	log.Debug("metrics_listen_start", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics_serve_failed", slog.String("err", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "usage: meetings [flags] <command> [command flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(w, "  %-14s %s\n", "shell", "interactive shell")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fs.PrintDefaults()
}

// setupLogger - как у сервисов, но в w: stdout занят выводом команд.
func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
