// Package cli builds the zeroframe command line: one-shot ZeroFrame calls against a
// local ZeroNet (or a gateway over COMMS), push watching and query mirroring.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/morezero/zeroframe/pkg/db"
	"github.com/morezero/zeroframe/pkg/zeroframe"
)

// Options are the persistent connection flags.
type Options struct {
	UIURL      string
	Site       string
	WrapperKey string
	NATS       string
	Subject    string
	Timeout    time.Duration
	Database   string
}

// Dialer opens a client for the given flags.
type Dialer func(ctx context.Context, opts Options) (*zeroframe.Client, error)

// MirrorStore persists mirrored rows.
type MirrorStore interface {
	SaveRows(ctx context.Context, params db.SaveRowsParams) (int, error)
}

// StoreOpener opens the mirror store at databaseURL. The returned func releases it.
type StoreOpener func(ctx context.Context, databaseURL string) (MirrorStore, func(), error)

type app struct {
	opts      Options
	dial      Dialer
	openStore StoreOpener
}

// New creates the root command.
func New(dial Dialer, openStore StoreOpener, version string) *cobra.Command {
	a := &app{dial: dial, openStore: openStore}
	var logLevel string

	root := &cobra.Command{
		Use:           "zeroframe",
		Short:         "Call the ZeroFrame API of a ZeroNet site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd, logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.opts.UIURL, "ui-url", "http://127.0.0.1:43110", "ZeroNet UI server")
	f.StringVar(&a.opts.Site, "site", "", "site address whose wrapper key is used")
	f.StringVar(&a.opts.WrapperKey, "wrapper-key", "", "wrapper key (discovered from --site when empty)")
	f.StringVar(&a.opts.NATS, "nats", "", "reach ZeroNet through a zeroframe-gateway at this COMMS URL")
	f.StringVar(&a.opts.Subject, "subject", "", "gateway command subject")
	f.DurationVar(&a.opts.Timeout, "timeout", 30*time.Second, "per-command timeout")
	f.StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")

	root.AddCommand(
		newVersionCmd(version),
		a.newCallCmd(),
		a.newPingCmd(),
		a.newSiteInfoCmd(),
		a.newServerInfoCmd(),
		a.newQueryCmd(),
		a.newFileCmd(),
		a.newFeedCmd(),
		a.newWatchCmd(),
		a.newMirrorCmd(),
	)
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
		},
	}
}

// withClient dials, runs fn under the command timeout and closes the client.
func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *zeroframe.Client) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.opts.Timeout)
	defer cancel()

	c, err := a.dial(ctx, a.opts)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

// setupLogging sends slog output to stderr so stdout stays machine-readable.
func setupLogging(cmd *cobra.Command, level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: l})))
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
