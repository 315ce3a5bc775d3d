package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"devrank/application/services"
	"devrank/domain/autocomplete"
	"devrank/domain/catalog"
	"devrank/domain/forms"
	"devrank/domain/graph"
	"devrank/domain/view"
	"devrank/infrastructure/config"
	"devrank/infrastructure/di"
)

func shortcutsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "shortcuts",
		Short: "List the shortcut queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := catalog.Default().List()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), templates)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range templates {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Slug, t.Name, t.Pattern)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func bindCmd(raw *bool) *cobra.Command {
	var (
		values           = map[string]*string{}
		withContributors bool
	)

	cmd := &cobra.Command{
		Use:   "bind <action>",
		Short: "Print the query a form submission produces",
		Long:  "Print the query a form submission produces.\n\nActions:\n  " + strings.Join(actionNames(), "\n  "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, ok := forms.ParseAction(args[0])
			if !ok {
				return fmt.Errorf("unknown action %q", args[0])
			}
			form := forms.Values{}
			for name, v := range values {
				if *v != "" {
					form[name] = *v
				}
			}
			binder := forms.NewBinder(forms.WithRawInterpolation(*raw))
			_, err := fmt.Fprintln(cmd.OutOrStdout(), binder.Bind(action, form, withContributors))
			return err
		},
	}

	for _, f := range []forms.Field{
		forms.FieldUser, forms.FieldRepo, forms.FieldLanguage,
		forms.FieldUser1Path, forms.FieldUser2Path,
	} {
		values[string(f)] = cmd.Flags().String(strings.ReplaceAll(string(f), "_", "-"), "", "Value of the "+string(f)+" field")
	}
	cmd.Flags().BoolVar(&withContributors, "with-contributors", false, "Include the other contributors (user-contributes)")
	return cmd
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <field> <text>",
		Short: "Look up names matching text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := autocomplete.ParseField(args[0]); !ok {
				return fmt.Errorf("unknown field %q", args[0])
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *di.Container) error {
				v, err := c.Views.OpenView(ctx, "")
				if err != nil {
					return err
				}
				defer c.Views.CloseView(ctx, v.ID(), services.CloseReasonClient)

				names, err := v.Suggest(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return writeLines(cmd.OutOrStdout(), names)
			})
		},
	}
}

func namesCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "names [field]",
		Short: "List every name of a field, or of all fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := []autocomplete.Field{autocomplete.FieldUser, autocomplete.FieldRepo, autocomplete.FieldLanguage}
			if len(args) == 1 {
				f, ok := autocomplete.ParseField(args[0])
				if !ok {
					return fmt.Errorf("unknown field %q", args[0])
				}
				fields = []autocomplete.Field{f}
			}

			return withContainer(cmd.Context(), func(ctx context.Context, c *di.Container) error {
				lists := make([][]string, len(fields))
				g, gctx := errgroup.WithContext(ctx)
				for i, f := range fields {
					g.Go(func() error {
						if refresh {
							if err := c.Names.Invalidate(gctx, f); err != nil {
								return fmt.Errorf("%s: %w", f, err)
							}
						}
						names, err := c.Names.ListNames(gctx, f)
						if err != nil {
							return fmt.Errorf("%s: %w", f, err)
						}
						lists[i] = names
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}

				if len(fields) == 1 {
					return writeLines(cmd.OutOrStdout(), lists[0])
				}
				out := make(map[string][]string, len(fields))
				for i, f := range fields {
					out[string(f)] = lists[i]
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Drop the cached lists before loading")
	return cmd
}

func renderCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "render [query]",
		Short: "Render a query, or the initial query, and summarise the frame",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *di.Container) error {
				v, err := c.Views.OpenView(ctx, "")
				if err != nil {
					return err
				}
				defer c.Views.CloseView(ctx, v.ID(), services.CloseReasonClient)

				if len(args) == 1 {
					if err := v.Select(ctx, args[0], true); err != nil {
						return err
					}
				}
				frame, err := v.AwaitFrame(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), frame)
				}
				return writeSummary(cmd.OutOrStdout(), frame, v.State().Notice)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the whole frame as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withContainerConfig(ctx, func(cfg *config.Config) {
				if addr != "" {
					cfg.ServerAddress = addr
				}
			}, func(ctx context.Context, c *di.Container) error {
				srv := &http.Server{
					Addr:              c.Config.ServerAddress,
					Handler:           c.Router.Setup(),
					ReadHeaderTimeout: 5 * time.Second,
				}

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					c.Logger.Info("Starting server", zap.String("address", srv.Addr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					c.Views.RunReaper(gctx, c.Config.ViewIdleTimeout/4)
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default SERVER_ADDRESS)")
	return cmd
}

func withContainer(ctx context.Context, fn func(context.Context, *di.Container) error) error {
	return withContainerConfig(ctx, nil, fn)
}

func withContainerConfig(ctx context.Context, adjust func(*config.Config), fn func(context.Context, *di.Container) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(cfg)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		cleanup()
		_ = container.Logger.Sync()
	}()
	return fn(ctx, container)
}

func actionNames() []string {
	infos := forms.Actions()
	names := make([]string, 0, len(infos))
	for _, a := range infos {
		fields := make([]string, len(a.Fields))
		for i, f := range a.Fields {
			fields[i] = "--" + strings.ReplaceAll(string(f), "_", "-")
		}
		names = append(names, fmt.Sprintf("%-24s %s", a.Action, strings.Join(fields, " ")))
	}
	return names
}

func writeSummary(w io.Writer, frame graph.Frame, notice view.Notice) error {
	labels := map[string]int{}
	for _, n := range frame.Nodes {
		labels[n.Label]++
	}
	types := map[string]int{}
	for _, e := range frame.Edges {
		types[e.Type]++
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "query\t%s\n", frame.Query)
	fmt.Fprintf(tw, "state\t%s\n", frame.State)
	if frame.Error != "" {
		fmt.Fprintf(tw, "error\t%s\n", frame.Error)
	}
	if notice.Visible {
		fmt.Fprintf(tw, "notice\t%s\n", notice.Message)
	}
	fmt.Fprintf(tw, "records\t%d\n", frame.RecordCount)
	fmt.Fprintf(tw, "nodes\t%d\t%s\n", len(frame.Nodes), counts(labels))
	fmt.Fprintf(tw, "edges\t%d\t%s\n", len(frame.Edges), counts(types))
	return tw.Flush()
}

func counts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
