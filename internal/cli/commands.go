package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/morezero/zeroframe/pkg/db"
	"github.com/morezero/zeroframe/pkg/reply"
	"github.com/morezero/zeroframe/pkg/zeroframe"
)

func (a *app) newCallCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "call <command> [param...]",
		Short: "Issue any command; params that parse as JSON are sent as JSON, the rest as strings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := parseParams(args[1:])
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				r, err := c.Call(ctx, args[0], params...)
				if err != nil {
					return err
				}
				if check {
					if err := c.Classifier().Result(r); err != nil {
						return err
					}
				}
				return writeJSON(cmd, r)
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "fail unless the reply is a success reply")
	return cmd
}

// parseParams turns positional arguments into command parameters.
func parseParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, arg := range args {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err == nil {
			params = append(params, v)
			continue
		}
		params = append(params, arg)
	}
	return params
}

func (a *app) newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the host answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				if err := c.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pong")
				return nil
			})
		},
	}
}

func (a *app) newSiteInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "site-info",
		Short: "Show the current site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				info, err := c.SiteInfo(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd, info)
			})
		},
	}
}

func (a *app) newServerInfoCmd() *cobra.Command {
	var require string
	cmd := &cobra.Command{
		Use:   "server-info",
		Short: "Show the ZeroNet server, optionally checking its version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				var (
					info zeroframe.ServerInfo
					err  error
				)
				if require != "" {
					info, err = c.RequireServer(ctx, require)
				} else {
					info, err = c.ServerInfo(ctx)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd, info)
			})
		},
	}
	cmd.Flags().StringVar(&require, "require", "", `version requirement, e.g. ">=0.7.1 rev>=4000"`)
	return cmd
}

func (a *app) newQueryCmd() *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a dbQuery against the site database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bound, err := parseQueryParams(params)
			if err != nil {
				return err
			}
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				rows, err := zeroframe.DBQuery[json.RawMessage](ctx, c, args[0], bound)
				if err != nil {
					return err
				}
				return writeJSON(cmd, rows)
			})
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "JSON object of named query parameters")
	return cmd
}

func parseQueryParams(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("--params must be a JSON object: %w", err)
	}
	return m, nil
}

func (a *app) newFileCmd() *cobra.Command {
	file := &cobra.Command{
		Use:   "file",
		Short: "Read site files",
	}

	var required bool
	get := &cobra.Command{
		Use:   "get <inner-path>",
		Short: "Print a file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				data, err := c.FileGetBytes(ctx, args[0], zeroframe.FileGetOptions{Required: required})
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
	get.Flags().BoolVar(&required, "required", false, "wait for the file to download")

	list := &cobra.Command{
		Use:   "list <inner-path>",
		Short: "List files under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				files, err := c.FileList(ctx, args[0])
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			})
		},
	}

	file.AddCommand(get, list)
	return file
}

func (a *app) newFeedCmd() *cobra.Command {
	var limit, dayLimit int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the newsfeed of followed sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				res, err := c.FeedQuery(ctx, limit, dayLimit)
				if err != nil {
					return err
				}
				return writeJSON(cmd, res.Rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum rows per site")
	cmd.Flags().IntVar(&dayLimit, "day-limit", 3, "only rows from the last N days")
	return cmd
}

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <command>...",
		Short: "Print host pushes (setSiteInfo, setServerInfo, ...) as JSON lines until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := a.dial(ctx, a.opts)
			if err != nil {
				return err
			}
			defer c.Close()

			lines := make(chan []byte, 16)
			for _, name := range args {
				c.OnCommand(name, func(name string, params reply.Reply) {
					line, err := json.Marshal(map[string]any{"cmd": name, "params": params})
					if err != nil {
						return
					}
					select {
					case lines <- line:
					case <-ctx.Done():
					}
				})
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case line := <-lines:
					fmt.Fprintln(cmd.OutOrStdout(), string(line))
				}
			}
		},
	}
}

func (a *app) newMirrorCmd() *cobra.Command {
	var query, source string
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Run a dbQuery and store its rows in Postgres under a source label",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" || source == "" {
				return fmt.Errorf("--query and --source are required")
			}
			if a.opts.Database == "" {
				return fmt.Errorf("--database is required")
			}
			return a.withClient(cmd, func(ctx context.Context, c *zeroframe.Client) error {
				rows, err := zeroframe.DBQuery[json.RawMessage](ctx, c, query, nil)
				if err != nil {
					return err
				}

				store, release, err := a.openStore(ctx, a.opts.Database)
				if err != nil {
					return err
				}
				defer release()

				n, err := store.SaveRows(ctx, db.SaveRowsParams{Source: source, Site: a.opts.Site, Rows: rows})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mirrored %d rows into %s\n", n, source)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "dbQuery SQL")
	cmd.Flags().StringVar(&source, "source", "", "label the rows are stored under")
	cmd.Flags().StringVar(&a.opts.Database, "database", os.Getenv("DATABASE_URL"), "Postgres URL of the mirror store")
	return cmd
}
