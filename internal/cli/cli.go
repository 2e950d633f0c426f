package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmjl/deliverydesk/internal/clientapp"
	"github.com/cmjl/deliverydesk/internal/envutil"
	"github.com/cmjl/deliverydesk/internal/security"
)

var ErrUsage = errors.New("usage")

// Execute runs one deliverydesk command. Output goes to stdout.
func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 || isHelpArg(args[0]) {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:], out)
	case "run":
		return runClient(ctx, args[1:])
	case "report":
		return runReport(ctx, args[1:], out)
	case "export":
		return runExport(ctx, args[1:], out)
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: deliverydesk <setup|run|report|export> [...]", ErrUsage)
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: deliverydesk setup --session-secret <secret> [--api-base-url url] [--maps-api-key key] [--env-file .env] [--force]")
	fmt.Fprintln(w, "       deliverydesk run")
	fmt.Fprintln(w, "       deliverydesk report --token <token> --driver <id> [--date YYYY-MM-DD] [--status all|match|mismatch] [--query text] [--page n] [--limit n]")
	fmt.Fprintln(w, "       deliverydesk export --token <token> --driver <id> [--date YYYY-MM-DD] [--format csv|xlsx] [--out file]")
}

// newFlagSet returns a flag set whose parse errors are reported through
// the returned error rather than printed.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected argument %q", ErrUsage, fs.Name(), fs.Arg(0))
	}
	return nil
}

func runSetup(args []string, out io.Writer) error {
	fs := newFlagSet("setup")
	secret := fs.String("session-secret", "", "cookie signing secret (min 16 chars)")
	apiBase := fs.String("api-base-url", "http://localhost:8080", "backend base URL")
	mapsKey := fs.String("maps-api-key", "", "Google Maps embed API key")
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if strings.TrimSpace(*secret) == "" {
		return errors.New("--session-secret is required")
	}
	if _, err := security.NewSigner(*secret); err != nil {
		return fmt.Errorf("invalid session secret: %w", err)
	}

	values := map[string]string{
		"CLIENT_ADDR":    ":3000",
		"API_BASE_URL":   strings.TrimSpace(*apiBase),
		"API_TIMEOUT":    "8s",
		"SESSION_SECRET": *secret,
	}
	if key := strings.TrimSpace(*mapsKey); key != "" {
		values["MAPS_API_KEY"] = key
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", *envPath)
	return nil
}

func runClient(ctx context.Context, args []string) error {
	if err := parseFlags(newFlagSet("run"), args); err != nil {
		return err
	}
	if err := clientapp.Run(ctx, clientapp.DefaultConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func today() string {
	return time.Now().Format("2006-01-02")
}
