package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"xsolla-tools/internal/api"
	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/scheduler"
	"xsolla-tools/internal/services/xsolla"
	"xsolla-tools/internal/websocket"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control panel API with a live log stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return errs.Validation("JWT_SECRET must be set to serve the control panel")
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			hub := websocket.NewHub()
			go hub.Run(ctx)
			logrus.AddHook(websocket.NewLogHook(hub, logrus.GetLevel()))

			var runs api.RunLister
			if a.journal != nil {
				runs = a.journal
			}
			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           api.NewRouter(a.tasks, runs, hub, a.cfg.JWTSecret),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logrus.Infof("Server starting on port %s", a.cfg.Port)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logrus.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func (a *app) scheduleCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Keep game prices in sync with Steam on a cron schedule ($SCHEDULE_JOBS, $SCHEDULE_SPEC)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := scheduler.ParseJobs(a.cfg.ScheduleJobs)
			if err != nil {
				return err
			}
			s := scheduler.New(a.tasks, a.key(), a.project(), jobs)
			if once {
				if failed := s.RunOnce(cmd.Context()); failed > 0 {
					return fmt.Errorf("%d of %d scheduled updates failed", failed, len(jobs))
				}
				return nil
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return s.Run(ctx, a.cfg.ScheduleSpec)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run every job once and exit")
	return cmd
}

func (a *app) applistCommand() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "applist",
		Short: "List Steam apps, optionally filtered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, removed, err := a.steam.GetAppList(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			needle := strings.ToLower(search)
			for _, app := range apps {
				if needle != "" && !strings.Contains(strings.ToLower(app.Name), needle) {
					continue
				}
				fmt.Fprintf(out, "%d\t%s\n", app.AppID, app.Name)
			}
			logrus.WithFields(logrus.Fields{"apps": len(apps), "duplicates": removed}).Info("App list loaded")
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive name filter")
	return cmd
}

func (a *app) runsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the most recent task runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireJournal(); err != nil {
				return err
			}
			runs, err := a.journal.RecentRuns(limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tTASK\tTARGET\tSTATUS\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.StartedAt.Format(time.DateTime), r.Task, r.Target, r.Status, r.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs")
	return cmd
}

func (a *app) snapshotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <steam-app-id>",
		Short: "Show the last Steam price sweep recorded for an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireJournal(); err != nil {
				return err
			}
			appID, err := parseAppID(args[0])
			if err != nil {
				return err
			}
			snapshots, err := a.journal.LatestSnapshots(appID)
			if err != nil {
				return err
			}
			for _, s := range snapshots {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.TakenAt.Format(time.DateTime), s.Currency, s.Amount.StringFixed(2))
			}
			return nil
		},
	}
}

func (a *app) tokenCommand() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the control panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := api.GenerateToken(a.cfg.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func (a *app) projectsCommand() *cobra.Command {
	var merchantID int
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects of a merchant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if merchantID == 0 {
				merchantID = a.cfg.XsollaMerchantID
			}
			if merchantID <= 0 {
				return errs.Validation("merchant id is required (--merchant-id or $XSOLLA_MERCHANT_ID)")
			}
			ids, err := xsolla.NewMerchantService(a.key(), merchantID, a.xsollaOptions()).ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&merchantID, "merchant-id", 0, "merchant id (default $XSOLLA_MERCHANT_ID)")
	return cmd
}
