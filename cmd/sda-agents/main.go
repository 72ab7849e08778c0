// sda-agents is the administration tool for the SDA agent directory. It
// connects to the configured MongoDB database, makes sure the agents
// collection is indexed, and prints directory records as JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/syntrixbase/sdastore/internal/config"
	"github.com/syntrixbase/sdastore/internal/core/storage"
	storagecfg "github.com/syntrixbase/sdastore/internal/core/storage/config"
	"github.com/syntrixbase/sdastore/internal/logging"
)

// Dependency injection for testing
var openStorage = func(ctx context.Context, cfg storagecfg.Config, logger *slog.Logger) (storage.StorageFactory, error) {
	return storage.NewFactory(ctx, cfg, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var configDir string
	var timeout time.Duration
	var help bool

	flagSet := pflag.NewFlagSet("sda-agents", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&configDir, "config", "c", config.DefaultConfigDir, "directory holding config.yml and config.local.yml")
	flagSet.DurationVar(&timeout, "timeout", 30*time.Second, "deadline for the whole command")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return &usageError{err: err}
	}
	if help {
		printHelp(stderr, flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return &usageError{err: errors.New("missing command")}
	}
	cmd, ok := lookupCommand(rest[0])
	if !ok {
		return &usageError{err: fmt.Errorf("unknown command %q", rest[0])}
	}
	if len(rest)-1 != cmd.args {
		return &usageError{err: fmt.Errorf("usage: sda-agents %s", cmd.usage)}
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Shutdown()
	logger := slog.Default().With("command", cmd.name)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	f, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}()

	return cmd.run(ctx, &env{store: f.Agents(), cfg: cfg.Storage, out: stdout}, rest[1:])
}

// exitCode maps err to the process status: 2 for bad invocations, 3 for
// records that do not exist, 1 otherwise.
func exitCode(err error) int {
	var usage *usageError
	switch {
	case errors.As(err, &usage):
		return 2
	case errors.Is(err, errNotFound):
		return 3
	default:
		return 1
	}
}

type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "SDA agent directory administration.\n\nUsage:\n  sda-agents [flags] <command> [args]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-22s %s\n", cmd.usage, cmd.summary)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}
