package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"livelits/internal/build"
	"livelits/internal/config"
	"livelits/internal/doctree"
	"livelits/internal/doctree/sitter"
	"livelits/internal/errors"
	"livelits/internal/literals"
	"livelits/internal/remap"
	"livelits/internal/tracking"
	"livelits/internal/watcher"
)

var (
	watchFormat      string
	watchStore       string
	watchMetricsAddr string
	watchBuildStatus string
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Track literals in files and publish changed values",
	Long: `Open each file, track its literals and reparse it whenever it is saved.
Changed values are written to the remapping store once each burst of saves
settles. A build status file (containing started, succeeded or failed)
suspends tracking while a build runs and resets the store when it ends.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFormat, "format", "human", "Output format for change events (json, human)")
	watchCmd.Flags().StringVar(&watchStore, "store", "", "Remapping store: memory or sqlite (default from config)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	watchCmd.Flags().StringVar(&watchBuildStatus, "build-status-file", "", "File whose content reports the build state")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchStore != "" {
		cfg.Store.Kind = watchStore
	}
	if watchMetricsAddr != "" {
		cfg.Metrics.Addr = watchMetricsAddr
	}
	if watchBuildStatus != "" {
		cfg.Watch.BuildStatusFile = watchBuildStatus
	}
	if err := cfg.Validate(); err != nil {
		return errors.New(errors.ConfigInvalid, err.Error(), err)
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if !sitter.IsAvailable() {
		return errors.New(errors.CGORequired, "watch requires a cgo build with tree-sitter", nil)
	}

	ctx, cancel := newContext()
	defer cancel()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ws := doctree.NewWorkspace()
	files := newOpenFiles(ws, logger)
	defer files.closeAll()
	for _, path := range args {
		if err := files.open(ctx, path); err != nil {
			return err
		}
	}

	signals := build.NewSignals()
	svc, err := tracking.New(tracking.Options{
		Workspace:      ws,
		Store:          remap.NewRecorder(store, logger),
		Build:          signals,
		Enabled:        func() bool { return cfg.Enabled },
		Scanner:        literals.NewScanner(literals.ScannerOptions{Semantic: cfg.Evaluator.Semantic}),
		CoalesceWindow: cfg.CoalesceWindow(),
		ScopeKey:       cfg.Store.ScopeKey,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	printer := &eventPrinter{w: cmd.OutOrStdout(), format: OutputFormat(watchFormat)}
	svc.AddListener(printer.print)

	if err := svc.Activate(ctx); err != nil {
		return err
	}
	if !svc.Active() {
		logger.Warn("Live literals are disabled in config; nothing will be tracked")
	}
	logger.Info("Tracking files", "files", len(args), "literals", len(svc.AllTrackedReferences()))

	statusFile := ""
	if cfg.Watch.BuildStatusFile != "" {
		statusFile, err = filepath.Abs(cfg.Watch.BuildStatusFile)
		if err != nil {
			return err
		}
	}

	statusUpdates := newStatusPublisher(signals, statusFile, logger, buildStatusSettle)
	defer statusUpdates.Cancel()

	fw, err := watcher.New(watcher.Config{
		DebounceMs:     cfg.Watch.DebounceMs,
		IgnorePatterns: cfg.Watch.IgnorePatterns,
	}, logger, func(events []watcher.Event) {
		for _, ev := range events {
			if ev.Path == statusFile {
				statusUpdates.Publish()
				continue
			}
			files.reload(ctx, ev.Path)
		}
	})
	if err != nil {
		return err
	}
	defer fw.Close()

	dirs := files.dirs()
	if statusFile != "" {
		dirs = append(dirs, filepath.Dir(statusFile))
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fw.Run(gctx) })
	if cfg.Metrics.Addr != "" {
		srv := newMetricsServer(cfg.Metrics.Addr)
		g.Go(func() error {
			logger.Info("Serving metrics", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	svc.Deactivate()
	logger.Info("Watch stopped")
	return err
}

func openStore(cfg *config.Config, logger *slog.Logger) (remap.Store, func(), error) {
	if cfg.Store.Kind != "sqlite" {
		return remap.NewMemoryStore(), func() {}, nil
	}
	dir := cfg.Store.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootDir, dir)
	}
	s, err := remap.OpenSQLiteStore(dir, logger)
	if err != nil {
		return nil, nil, err
	}
	n, err := s.Count()
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	logger.Info("Publishing constants to sqlite", "path", s.Path(), "existing", n)
	return s, func() { _ = s.Close() }, nil
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// buildStatusSettle is how long the build status file must stay unchanged
// before its content is published.
const buildStatusSettle = 250 * time.Millisecond

// statusPublisher publishes the build status file once it settles.
type statusPublisher struct {
	debouncer *watcher.Debouncer
	signals   *build.Signals
	path      string
	logger    *slog.Logger
}

func newStatusPublisher(signals *build.Signals, path string, logger *slog.Logger, settle time.Duration) *statusPublisher {
	return &statusPublisher{
		debouncer: watcher.NewDebouncer(settle),
		signals:   signals,
		path:      path,
		logger:    logger,
	}
}

// Publish schedules a read of the status file after the settle delay.
func (p *statusPublisher) Publish() {
	p.debouncer.Trigger(func() { publishBuildStatus(p.signals, p.path, p.logger) })
}

// Cancel drops a scheduled read.
func (p *statusPublisher) Cancel() {
	p.debouncer.Cancel()
}

func publishBuildStatus(signals *build.Signals, path string, logger *slog.Logger) {
	e, err := build.ReadStatusFile(path)
	if err != nil {
		logger.Warn("Unreadable build status", "path", path, "error", err.Error())
		return
	}
	if last, ok := signals.Last(); ok && last == e {
		return
	}
	logger.Info("Build status changed", "status", e.String())
	signals.Publish(e)
}

// openFiles keeps one parse session per watched file.
type openFiles struct {
	ws     *doctree.Workspace
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sitter.Session
}

func newOpenFiles(ws *doctree.Workspace, logger *slog.Logger) *openFiles {
	return &openFiles{ws: ws, logger: logger, sessions: make(map[string]*sitter.Session)}
}

func (f *openFiles) open(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	lang, ok := doctree.LanguageFromExtension(filepath.Ext(abs))
	if !ok {
		return errors.Newf(errors.UnsupportedLanguage, "unsupported file type %q", filepath.Ext(abs))
	}
	source, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	sess, err := sitter.Open(ctx, abs, lang, source)
	if err != nil {
		return err
	}
	if err := f.ws.Add(sess.Document()); err != nil {
		sess.Close()
		return err
	}

	f.mu.Lock()
	f.sessions[abs] = sess
	f.mu.Unlock()
	return nil
}

// reload reparses path after a save. A file that disappeared is closed.
func (f *openFiles) reload(ctx context.Context, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sess, ok := f.sessions[path]
	if !ok {
		return
	}
	source, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		f.logger.Info("File removed, closing", "file", path)
		f.ws.Close(path)
		sess.Close()
		delete(f.sessions, path)
		return
	}
	if err != nil {
		f.logger.Warn("Failed to read file", "file", path, "error", err.Error())
		return
	}
	if err := sess.Update(ctx, source); err != nil {
		f.logger.Warn("Failed to reparse file", "file", path, "error", err.Error())
	}
}

func (f *openFiles) dirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]bool)
	var dirs []string
	for path := range f.sessions {
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func (f *openFiles) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for path, sess := range f.sessions {
		f.ws.Close(path)
		sess.Close()
	}
	f.sessions = make(map[string]*sitter.Session)
}

// eventPrinter renders listener notifications.
type eventPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	format OutputFormat
}

func (p *eventPrinter) print(changed []*literals.Reference) {
	ev := &ChangeEventCLI{
		Time:    time.Now().Format(time.TimeOnly),
		Cleared: len(changed) == 0,
		Changes: make([]ChangeCLI, 0, len(changed)),
	}
	for _, ref := range changed {
		v, _ := ref.Value()
		ev.Changes = append(ev.Changes, ChangeCLI{
			File:  filepath.Base(ref.Document().URI()),
			Owner: ref.OwnerPath(),
			Line:  ref.Line(),
			Old:   literals.Format(ref.InitialValue()),
			New:   literals.Format(v),
		})
	}

	var out string
	var err error
	if p.format == FormatJSON {
		out, err = formatCompactJSON(ev)
	} else {
		out, err = FormatResponse(ev, p.format)
	}
	if err != nil {
		return
	}
	p.mu.Lock()
	fmt.Fprintln(p.w, out)
	p.mu.Unlock()
}
