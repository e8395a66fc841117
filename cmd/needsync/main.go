package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"needboard/internal/core/config"
	"needboard/internal/core/logger"
	"needboard/internal/offline"
)

type env struct {
	cfg *config.Config
	log *zap.Logger
	q   *offline.Queue
}

func main() {
	_ = godotenv.Load()
	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	var (
		cfgPath string
		e       env
		cleanup = func() {}
	)
	root := &cobra.Command{
		Use:          "needsync",
		Short:        "Queue needs while offline and replay them to the API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(cfgPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log, cleanup = logger.FromConfig(cfg.Log)
			e.q, err = offline.OpenQueue(cfg.Sync.QueuePath)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.q != nil {
				_ = e.q.Close()
			}
			cleanup()
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	root.AddCommand(enqueueCmd(&e), listCmd(&e), flushCmd(&e), watchCmd(&e))
	return root
}

func enqueueCmd(e *env) *cobra.Command {
	var d offline.Draft
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Store a need locally until it can be posted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := e.q.Enqueue(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s (seq %d)\n", p.ClientID, p.Seq)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Title, "title", "", "need title")
	f.StringVar(&d.Description, "description", "", "need description")
	f.Int64Var(&d.Budget, "budget", 0, "budget")
	f.StringVar(&d.Category, "category", "other", "services|products|rentals|pets|transport|other")
	f.StringVar(&d.Location, "location", "", "location")
	f.StringVar(&d.Timeframe, "timeframe", "", "urgent|today|this_week|this_month|flexible")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func listCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show queued needs in submission order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := e.q.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]map[string]any, 0, len(items))
				for _, p := range items {
					d, _ := p.Draft()
					out = append(out, map[string]any{
						"clientId": p.ClientID, "seq": p.Seq, "attempts": p.Attempts,
						"lastError": p.LastError, "createdAt": p.CreatedAt, "need": d,
					})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tCLIENT ID\tTITLE\tATTEMPTS\tLAST ERROR")
			for _, p := range items {
				d, _ := p.Draft()
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.Seq, p.ClientID, d.Title, p.Attempts, p.LastError)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func submitter(e *env) *offline.HTTPSubmitter {
	s := e.cfg.Sync
	return offline.NewHTTPSubmitter(s.APIBaseURL, s.Token, time.Duration(s.SubmitTimeoutSec)*time.Second)
}

func flushCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Submit every queued need once, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := offline.NewSyncer(e.q, submitter(e), e.log).Flush(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, submitted %d, failed %d\n", rep.Attempted, rep.Submitted, rep.Failed)
			return nil
		},
	}
}

func watchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Probe the API and replay the queue each time it comes back online",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub := submitter(e)
			w := &offline.Watcher{
				Probe:       sub,
				Every:       time.Duration(e.cfg.Sync.ProbeEverySec) * time.Second,
				FireOnStart: true,
			}
			e.log.Info("needsync watching", zap.String("api", e.cfg.Sync.APIBaseURL), zap.Duration("every", w.Every))
			offline.NewSyncer(e.q, sub, e.log).Run(ctx, w.Watch(ctx))
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
