package cmd

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tnsops/bookingbot/internal/observability"
	"github.com/tnsops/bookingbot/internal/status"
	"github.com/tnsops/bookingbot/internal/tui"
	"github.com/tnsops/bookingbot/pkg/address"
	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/driver"
	"github.com/tnsops/bookingbot/pkg/ledger"
	"github.com/tnsops/bookingbot/pkg/scheduler"
	"github.com/tnsops/bookingbot/pkg/submit"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Upload pending bookings from a workbook",
	Long: `Upload every pending booking from a workbook into the portal.

Rows already marked Done are skipped, so an interrupted batch can simply
be run again. By default an interactive view shows per-row progress;
use --headless for unattended runs driven by logs alone.

Example:
  bookingbot run --file bookings.xlsx
  bookingbot run --glob "downloads/*.xlsx" --headless
  bookingbot run --file bookings.xlsx --status-addr 127.0.0.1:8765`,
	RunE: runRun,
}

var (
	runFile       string
	runGlob       string
	runHeadless   bool
	runStatusAddr string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Workbook to upload")
	runCmd.Flags().StringVarP(&runGlob, "glob", "g", "", "Glob pattern; the newest match is used")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without the interactive view")
	runCmd.Flags().StringVar(&runStatusAddr, "status-addr", "", "Serve progress JSON on this address")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := observability.CLILogger

	store, records, err := loadRecords(runFile, runGlob)
	if err != nil {
		return err
	}
	if err := store.EnsureStatusColumn(); err != nil {
		return fmt.Errorf("prepare status column: %w", err)
	}

	summary := booking.Summarize(records)
	log.Info("workbook loaded",
		zap.String("path", store.Path()),
		zap.Int("rows", summary.Total),
		zap.Int("valid", summary.Valid),
		zap.Int("invalid", summary.Invalid))
	for _, p := range summary.Problems {
		log.Warn("invalid row skipped", zap.String("problem", p))
	}

	entries, err := address.LoadTable(cfg.Locations)
	if err != nil {
		return fmt.Errorf("load location table: %w", err)
	}
	if entries == nil {
		log.Warn("location table missing, codes pass through unresolved",
			zap.String("path", cfg.Locations))
	}
	resolver := address.NewResolver(entries, log)

	led := ledger.Load(records, store, log)

	client, err := driver.Launch(ctx, driver.Config{
		UserDataDir: cfg.Browser.UserDataDir,
		Headless:    cfg.Browser.Headless || runHeadless,
	}, log)
	if err != nil {
		return err
	}
	defer client.Close()

	var stop atomic.Bool
	callbacks := headlessCallbacks(log)
	// The waiter shares both cancellation sources with the scheduler, so
	// a stop raised through either is seen within one wait slice.
	waiter := submit.NewWaiter(cfg.Scheduler.Slice, &stop, callbacks.ShouldStop)
	protocol := submit.New(client, resolver, waiter, submit.Config{
		CreateURL:      cfg.Portal.CreateURL,
		Annotation:     cfg.Submit.Annotation,
		CountryCode:    cfg.Submit.CountryCode,
		ReadyTimeout:   cfg.Submit.ReadyTimeout,
		ConfirmTimeout: cfg.Submit.ConfirmTimeout,
		ConfirmText:    cfg.Submit.ConfirmText,
		DiagnosticsDir: cfg.Submit.DiagnosticsDir,
	}, log)

	sched := scheduler.New(protocol, led, &stop, scheduler.Config{
		PacePerMinute: cfg.Scheduler.PacePerMinute,
	}, callbacks, log)

	if srv := startStatusServer(ctx, led, log); srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var result *scheduler.Summary
	if runHeadless {
		result, err = sched.Start(ctx, records)
	} else {
		result, err = tui.Run(ctx, records, led, sched)
	}
	if err != nil {
		return err
	}
	if result != nil {
		printSummary(result)
	}
	return nil
}

// headlessCallbacks log per-record transitions; the interactive view
// reads the ledger directly instead.
func headlessCallbacks(log *zap.Logger) scheduler.Callbacks {
	return scheduler.Callbacks{
		OnStatusChange: func(row int, st ledger.Status) {
			log.Debug("status change", zap.Int("row", row), zap.String("status", string(st)))
		},
		OnProgress: func(done, total int) {
			log.Info("progress", zap.Int("done", done), zap.Int("total", total))
		},
	}
}

func startStatusServer(ctx context.Context, led *ledger.Ledger, log *zap.Logger) *status.Server {
	addr := runStatusAddr
	if addr == "" {
		addr = cfg.Status.Addr
	}
	if addr == "" {
		return nil
	}
	srv := status.New(addr, led, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Warn("status endpoint failed", zap.Error(err))
		}
	}()
	return srv
}

func printSummary(s *scheduler.Summary) {
	if s.NothingToDo {
		fmt.Println("Nothing to do: all records already done.")
		return
	}
	fmt.Printf("Done: %d  Errors: %d  Stopped: %d  Skipped invalid: %d\n",
		s.Done, s.Errored, s.Stopped, s.SkippedInvalid)
}
