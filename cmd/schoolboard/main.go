package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"schoolboard/internal/board"
	"schoolboard/internal/capture"
	"schoolboard/internal/config"
	"schoolboard/internal/datenorm"
	"schoolboard/internal/fetch"
	"schoolboard/internal/holiday"
	appLog "schoolboard/internal/log"
	"schoolboard/internal/schedule"
	"schoolboard/internal/sheet"
	"schoolboard/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   bool
}

// app bundles the collaborators built from config.
type app struct {
	cfg       *config.Config
	holder    *board.Holder
	loader    *board.Loader
	evaluator *schedule.Evaluator
	offset    time.Duration
}

func main() {
	appLog.Info("schoolboard starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Init(appLog.Options{Level: conf.Log.Level, Format: conf.Log.Format})

	appLog.Info("effective config",
		"listen", conf.Listen,
		"sheet_id_set", conf.SheetID != "",
		"holiday_format", conf.Holiday.Format,
		"utc_offset_hours", conf.UTCOffsetHours,
		"refresh", conf.RefreshCron,
		"cache_dir", conf.CacheDir,
		"snapshot", conf.Snapshot.Enabled,
		"once", flags.once,
	)
	if conf.SheetID == "" {
		appLog.Error("no spreadsheet configured; board sections will be empty", errors.New("sheet_id is empty"))
	}

	a, err := newApp(conf)
	if err != nil {
		appLog.Error("failed to initialize", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := a.runOnce(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	a.holder.Refresh(ctx, a.loader)

	if flags.snapshot {
		if err := a.runSnapshotOnly(ctx); err != nil {
			appLog.Error("snapshot failed", err)
			os.Exit(1)
		}
		return
	}

	if err := a.serve(ctx); err != nil {
		appLog.Error("server failed", err)
		os.Exit(1)
	}

	// Give some time for in-flight logging.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("schoolboard exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/schoolboard/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print the school status and today's agenda, then exit")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Load the board, capture /board to PNG and exit")

	flag.Parse()

	return cfg
}

func newApp(conf *config.Config) (*app, error) {
	fetcher := fetch.NewFetcher(conf.CacheDir)

	format, err := holiday.ParseFormat(conf.Holiday.Format)
	if err != nil {
		return nil, err
	}
	holidays := holiday.NewSource(fetcher, holiday.Options{
		URL:    conf.Holiday.URL,
		Format: format,
		TTL:    time.Duration(conf.Holiday.TTLMinutes) * time.Minute,
	})

	offset := time.Duration(conf.UTCOffsetHours * float64(time.Hour))

	return &app{
		cfg:    conf,
		holder: &board.Holder{},
		loader: &board.Loader{
			Source: sheet.NewClient(fetcher, conf.SheetID),
			Sheets: board.SheetNames{
				Students:  conf.Sheets.Students,
				Subjects:  conf.Sheets.Subjects,
				Agenda:    conf.Sheets.Agenda,
				Timetable: conf.Sheets.Timetable,
			},
		},
		evaluator: schedule.NewEvaluator(holidays, offset),
		offset:    offset,
	}, nil
}

// runOnce loads the board and the status concurrently and prints both.
func (a *app) runOnce(ctx context.Context) error {
	var (
		wg        sync.WaitGroup
		rep       schedule.Report
		statusErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.holder.Refresh(ctx, a.loader)
	}()
	go func() {
		defer wg.Done()
		rep, statusErr = a.evaluator.Current(ctx)
	}()
	wg.Wait()

	if statusErr != nil {
		fmt.Println("Status sekolah tidak tersedia:", statusErr)
	} else {
		fmt.Println(rep.Message)
	}

	now := schedule.ToSchoolTime(time.Now(), a.offset)
	home := a.holder.Get().Home(datenorm.FromTime(now))
	for _, day := range []board.DayAgenda{home.Today, home.Tomorrow} {
		fmt.Println()
		fmt.Println(day.Heading)
		for _, item := range day.Items {
			fmt.Println("  -", item)
		}
		if day.Placeholder != "" {
			fmt.Println("  ", day.Placeholder)
		}
	}
	return statusErr
}

// serve runs the HTTP server plus the refresh (and optional snapshot) cron
// until ctx is canceled.
func (a *app) serve(ctx context.Context) error {
	snap := a.snapshotFunc()

	c := cron.New()
	if _, err := c.AddFunc(a.cfg.RefreshCron, func() {
		a.holder.Refresh(ctx, a.loader)
		if snap != nil && a.cfg.Snapshot.Cron == "" {
			snap(ctx)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", a.cfg.RefreshCron, err)
	}
	if snap != nil && a.cfg.Snapshot.Cron != "" {
		if _, err := c.AddFunc(a.cfg.Snapshot.Cron, func() { snap(ctx) }); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", a.cfg.Snapshot.Cron, err)
		}
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	srv := web.NewServer(a.cfg, web.Deps{
		Board:     a.holder,
		Loader:    a.loader,
		Status:    a.evaluator,
		Offset:    a.offset,
		OnRefresh: snap,
	})

	if snap != nil {
		// First capture once the listener is up.
		go func() {
			select {
			case <-time.After(2 * time.Second):
				snap(ctx)
			case <-ctx.Done():
			}
		}()
	}

	return srv.Run(ctx)
}

// runSnapshotOnly serves the board just long enough to capture it.
func (a *app) runSnapshotOnly(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := web.NewServer(a.cfg, web.Deps{
		Board:  a.holder,
		Status: a.evaluator,
		Offset: a.offset,
	})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	// Let the listener come up.
	time.Sleep(500 * time.Millisecond)

	err := capture.BoardPNG(ctx, a.captureOptions())
	cancel()
	if serr := <-errCh; serr != nil && err == nil {
		err = serr
	}
	if err == nil {
		appLog.Info("snapshot written", "path", a.cfg.Snapshot.Output)
	}
	return err
}

// snapshotFunc returns the capture hook, or nil when snapshots are off.
func (a *app) snapshotFunc() func(ctx context.Context) {
	if !a.cfg.Snapshot.Enabled {
		return nil
	}
	var mu sync.Mutex
	return func(ctx context.Context) {
		// One Chromium at a time.
		mu.Lock()
		defer mu.Unlock()
		if err := capture.BoardPNG(ctx, a.captureOptions()); err != nil {
			appLog.Error("snapshot failed", err)
			return
		}
		appLog.Info("snapshot written", "path", a.cfg.Snapshot.Output)
	}
}

func (a *app) captureOptions() capture.Options {
	return capture.Options{
		URL:        boardURL(a.cfg),
		OutputPath: a.cfg.Snapshot.Output,
		Width:      a.cfg.Snapshot.Width,
		Height:     a.cfg.Snapshot.Height,
	}
}

// boardURL is the loopback URL of /board for the configured listener.
func boardURL(cfg *config.Config) string {
	host, port, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		host, port = "127.0.0.1", "8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/board"}
	if cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" {
		u.User = url.UserPassword(cfg.BasicAuth.Username, cfg.BasicAuth.Password)
	}
	return u.String()
}
