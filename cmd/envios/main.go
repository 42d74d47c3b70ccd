package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/dukerupert/envios/internal/api"
	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/config"
	"github.com/dukerupert/envios/internal/inventory"
	"github.com/dukerupert/envios/internal/kv"
	"github.com/dukerupert/envios/internal/logging"
	"github.com/dukerupert/envios/internal/model"
	"github.com/dukerupert/envios/internal/session"
)

var errNotLoggedIn = errors.New("not logged in (run: envios login)")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":           {"login [-email e] [-password p]", cmdLogin},
	"logout":          {"logout", cmdLogout},
	"whoami":          {"whoami", cmdWhoami},
	"inventory":       {"inventory [-q text] [-page n] [-refresh]", cmdInventory},
	"order":           {"order -id n", cmdOrder},
	"orders":          {"orders [-status Espera|EnProceso|Entregado|Devuelto|sin-asignar] [-driver id]", cmdOrders},
	"release":         {"release -id n", cmdRelease},
	"new-order":       {"new-order < order.json", cmdNewOrder},
	"dashboard":       {"dashboard", cmdDashboard},
	"report":          {"report [-tipo hoy|personalizado] [-desde d] [-hasta d] [-xlsx file] [-upload]", cmdReport},
	"register-branch": {"register-branch < branch.json", cmdRegisterBranch},
	"register-driver": {"register-driver [-foto-cara f] [-foto-documento f] < driver.json", cmdRegisterDriver},
	"serve":           {"serve [-addr :8080]", cmdServe},
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("envios", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "Path to an optional .env file")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(stdout, fs)
		return fmt.Errorf("missing command")
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(stdout, fs)
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, fs.Args()[1:])
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: envios [-env file] <command> [flags]")
	fmt.Fprintln(w, "\nCommands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", commands[n].usage)
	}
	fmt.Fprintln(w, "\nGlobal flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// app holds the wiring shared by every command.
type app struct {
	cfg       config.Config
	store     kv.Store
	sessions  *session.Store
	client    *api.Client
	auth      *auth.Service
	inventory *inventory.Service
	logger    *slog.Logger

	stdin  io.Reader
	lines  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(ctx context.Context, cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, stderr)

	store, err := kv.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(store, logger.With("component", "session"))
	opts := []api.Option{
		api.WithLogger(logger.With("component", "api")),
		api.WithUnauthorizedHandler(func(ctx context.Context) {
			if err := sessions.Clear(ctx); err != nil {
				logger.Warn("clear session after 401", "error", err)
			}
		}),
	}
	if cfg.HTTPTimeout != api.DefaultTimeout {
		opts = append(opts, api.WithHTTPClient(newHTTPClient(cfg.HTTPTimeout)))
	}
	if cfg.RetryMax > 0 {
		opts = append(opts, api.WithRetry(cfg.RetryMax, cfg.RetryBase))
	}
	client := api.New(cfg.APIURL, sessions, opts...)

	return &app{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		client:    client,
		auth:      auth.NewService(client, sessions, logger.With("component", "auth")),
		inventory: inventory.NewService(client, store, cfg.CacheWindow, logger.With("component", "inventory")),
		logger:    logger,
		stdin:     stdin,
		lines:     bufio.NewReader(stdin),
		stdout:    stdout,
		stderr:    stderr,
	}, nil
}

// Close lets a pending background refresh store its result, up to the
// HTTP timeout, before shutting the cache and store down.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout)
	defer cancel()
	if err := a.inventory.Wait(ctx); err != nil {
		a.logger.Warn("background refresh did not finish", "error", err)
	}
	a.inventory.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

// current returns the stored session or errNotLoggedIn.
func (a *app) current(ctx context.Context) (model.Session, error) {
	sess, ok := a.auth.Current(ctx)
	if !ok {
		return model.Session{}, errNotLoggedIn
	}
	return sess, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (a *app) readLine() (string, error) {
	line, err := a.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) readPassword() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	// Fallback for non-terminal (e.g. tests, pipes)
	return a.readLine()
}
