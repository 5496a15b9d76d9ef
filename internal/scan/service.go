// Package scan provides the scan service that routes decoded event records
// through the channel detectors and forwards findings to a reporter.
package scan

import (
	"fmt"
	"os"
	"time"

	"github.com/digggggmori-pixel/ferret-evtx/internal/collector"
	"github.com/digggggmori-pixel/ferret-evtx/internal/detector"
	"github.com/digggggmori-pixel/ferret-evtx/internal/fsutil"
	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
	"github.com/google/uuid"
)

// Reporter receives findings in generation order. path is the log file the
// finding came from.
type Reporter interface {
	Report(path string, f types.Finding)
}

// Progress represents directory scan progress
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Path    string `json:"path"`
	Done    bool   `json:"done"`
}

// Summary counts what a run processed
type Summary struct {
	RunID        string        `json:"runId"`
	Files        int           `json:"files"`
	FileErrors   int           `json:"fileErrors"`
	Records      int64         `json:"records"`
	DecodeErrors int64         `json:"decodeErrors"`
	Findings     int           `json:"findings"`
	Duration     time.Duration `json:"duration"`
}

// Service manages the scan lifecycle
type Service struct {
	runID      string
	config     Config
	router     *Router
	collector  *collector.EventLogCollector
	reporter   Reporter
	metrics    *Metrics
	onProgress func(Progress)
	summary    Summary
}

// NewService creates a new scan service (no progress callback).
func NewService(set *detector.Set, rep Reporter, cfg Config) *Service {
	runID := uuid.New().String()
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = collector.Extensions
	}
	return &Service{
		runID:     runID,
		config:    cfg,
		router:    NewRouter(set),
		collector: collector.NewEventLogCollector(),
		reporter:  rep,
		metrics:   NewMetrics(runID),
		summary:   Summary{RunID: runID},
	}
}

// NewServiceWithProgress creates a scan service that reports directory
// progress through fn.
func NewServiceWithProgress(set *detector.Set, rep Reporter, cfg Config, fn func(Progress)) *Service {
	s := NewService(set, rep, cfg)
	s.onProgress = fn
	return s
}

// RunID returns the identifier of this run
func (s *Service) RunID() string {
	return s.runID
}

// Metrics returns the run counters
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Summary returns the counts accumulated so far
func (s *Service) Summary() Summary {
	sum := s.summary
	sum.Records = s.collector.TotalRecords()
	sum.DecodeErrors = s.collector.TotalErrors()
	return sum
}

func (s *Service) emitProgress(p Progress) {
	if s.onProgress != nil {
		s.onProgress(p)
	}
}

// ScanFile analyzes a single log file. An error means the file could not
// be read at all; malformed records are reported and skipped.
func (s *Service) ScanFile(path string) error {
	start := time.Now()
	defer func() { s.summary.Duration += time.Since(start) }()

	logger.Section("Scan " + path)
	logger.Info("Run %s", s.runID)

	s.summary.Files++
	s.metrics.FilesTotal.Inc()

	err := s.collector.ReadFile(path, func(ev *types.Event, err error) {
		if err != nil {
			s.metrics.DecodeErrorTotal.Inc()
			logger.Alert("%s: %v", path, err)
			return
		}
		s.metrics.RecordsTotal.Inc()
		s.handle(path, ev)
	})
	if err != nil {
		s.summary.FileErrors++
		s.metrics.FileErrorsTotal.Inc()
		return err
	}
	return nil
}

func (s *Service) handle(path string, ev *types.Event) {
	for _, f := range s.router.Route(ev) {
		s.summary.Findings++
		s.metrics.FindingsTotal.WithLabelValues(f.Headline).Inc()
		s.reporter.Report(path, f)
	}
}

// ScanDir analyzes every recognized log file below dir. Only an unreadable
// dir is an error; files that fail are reported and skipped.
func (s *Service) ScanDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	files := fsutil.WalkFiles(dir, fsutil.HasExt(s.config.Extensions...))
	logger.Info("Found %d log files below %s", len(files), dir)

	for i, path := range files {
		s.emitProgress(Progress{Current: i, Total: len(files), Path: path})
		if err := s.ScanFile(path); err != nil {
			logger.Alert("%v", err)
		}
	}
	s.emitProgress(Progress{Current: len(files), Total: len(files), Done: true})
	return nil
}

// Finish writes the metrics textfile when one is configured
func (s *Service) Finish() error {
	sum := s.Summary()
	logger.Info("Run %s: %d files (%d failed), %d records, %d decode errors, %d findings in %v",
		sum.RunID, sum.Files, sum.FileErrors, sum.Records, sum.DecodeErrors, sum.Findings, sum.Duration)

	if s.config.MetricsFile == "" {
		return nil
	}
	if err := s.metrics.WriteTextfile(s.config.MetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", s.config.MetricsFile, err)
	}
	return nil
}
