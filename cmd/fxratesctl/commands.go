package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"fxrates-engine/internal/bootstrap"
	"fxrates-engine/internal/config"
	"fxrates-engine/internal/domain"
	"fxrates-engine/internal/infrastructure/logx"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type cli struct {
	app     *bootstrap.App
	cleanup func()
	asJSON  bool
}

func newRootCmd() *cobra.Command {
	c := &cli{cleanup: func() {}}
	root := &cobra.Command{
		Use:           "fxratesctl",
		Short:         "Query currencies and exchange rates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) { c.cleanup() },
	}
	root.PersistentFlags().String("data-dir", "", "override DATA_DIR")
	root.PersistentFlags().String("mode", "", "start mode override (online, offline)")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON")
	root.PersistentFlags().Bool("verbose", false, "log to stderr")

	root.AddCommand(
		c.versionCmd(),
		c.symbolsCmd(),
		c.convertCmd(),
		c.rateCmd(),
		c.historyCmd(),
		c.cacheCmd(),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	cfg := config.Load()
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
		cfg.SymbolsFile = filepath.Join(dir, "symbols.txt")
		cfg.SnapshotFile = filepath.Join(dir, "rates_snapshot.txt")
		cfg.PairCacheFile = filepath.Join(dir, "pair_rates.txt")
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.StartMode = mode
	}
	log := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log = logx.L()
	}
	app, cleanup, err := bootstrap.Build(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	c.app, c.cleanup = app, cleanup
	return nil
}

func (c *cli) print(w io.Writer, v any, text func(io.Writer)) error {
	if c.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fxratesctl %s (%s)\n", version, commit)
		},
	}
}

func (c *cli) symbolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols [CODE]",
		Short: "List currencies, or look one up by code or --name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := c.app.Service
			name, _ := cmd.Flags().GetString("name")
			var list []domain.Currency
			switch {
			case name != "":
				cur, err := svc.CurrencyByName(name)
				if err != nil {
					return err
				}
				list = []domain.Currency{cur}
			case len(args) == 1:
				cur, err := svc.Currency(args[0])
				if err != nil {
					return err
				}
				list = []domain.Currency{cur}
			default:
				list = svc.Currencies()
			}
			return c.print(cmd.OutOrStdout(), list, func(w io.Writer) {
				for _, cur := range list {
					fmt.Fprintf(w, "%s\t%s\n", cur.Code, cur.DisplayName)
				}
			})
		},
	}
	cmd.Flags().String("name", "", "look up by display name (case-insensitive)")
	return cmd
}

func (c *cli) convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert FROM TO AMOUNT",
		Short: "Convert an amount between two currencies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			if offline, _ := cmd.Flags().GetBool("offline"); offline {
				if err := c.app.Service.SwitchMode(string(domain.ModeOffline)); err != nil {
					return err
				}
			}
			res, err := c.app.Service.Convert(cmd.Context(), args[0], args[1], amount)
			if err != nil {
				return userError(err)
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s = %s %s (rate %s, %s)\n",
					formatFloat(res.Amount), res.From, formatFloat(res.Result), res.To, formatFloat(res.Rate), res.Mode)
			})
		},
	}
	cmd.Flags().Bool("offline", false, "answer from the local cache only")
	return cmd
}

func (c *cli) rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate FROM TO",
		Short: "Show the latest rate for a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := c.app.Service.LatestRate(cmd.Context(), args[0], args[1])
			if err != nil {
				return userError(err)
			}
			return c.print(cmd.OutOrStdout(), q, func(w io.Writer) {
				fmt.Fprintf(w, "1 %s = %s %s (as of %s)\n", q.From.Code, formatFloat(q.Rate), q.To.Code, q.ObservedAt.Format(dateLayout))
			})
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history FROM TO START END",
		Short: "Show a sampled rate series between two dates (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(dateLayout, args[2])
			if err != nil {
				return fmt.Errorf("invalid start date %q", args[2])
			}
			end, err := time.Parse(dateLayout, args[3])
			if err != nil {
				return fmt.Errorf("invalid end date %q", args[3])
			}
			series, err := c.app.Service.HistoricalRates(cmd.Context(), args[0], args[1], start, end)
			if err != nil {
				return userError(err)
			}
			if len(series) == 0 {
				return fmt.Errorf("no historical data for selected range")
			}
			return c.print(cmd.OutOrStdout(), series, func(w io.Writer) {
				for _, q := range series {
					fmt.Fprintf(w, "%s\t%s\n", q.ObservedAt.Format(dateLayout), formatFloat(q.Rate))
				}
			})
		},
	}
}

func (c *cli) cacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "Show everything held in the offline caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum := c.app.Service.CacheSummary(cmd.Context())
			return c.print(cmd.OutOrStdout(), sum, func(w io.Writer) {
				keys := make([]string, 0, len(sum.Rates))
				for k := range sum.Rates {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(w, "%s\t%s\n", k, formatFloat(sum.Rates[k]))
				}
				if sum.LatestAt != nil {
					fmt.Fprintf(w, "latest pair update: %s\n", sum.LatestAt.Format(time.RFC3339))
				}
				if sum.SnapshotAt != nil {
					fmt.Fprintf(w, "snapshot: %s\n", sum.SnapshotAt.Format(time.RFC3339))
				}
			})
		},
	}
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// userError prefixes provider failures the way the API reports them. Not-found and
// offline errors already carry their user-facing wording.
func userError(err error) error {
	if errors.Is(err, domain.ErrProvider) {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return err
}
