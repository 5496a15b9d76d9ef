package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/detector"
	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"github.com/digggggmori-pixel/ferret-evtx/internal/output"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/internal/scan"
)

const Version = "1.0.0"

const creditsFile = "credits.txt"

type options struct {
	filePath    string
	dirPath     string
	credits     bool
	outCSV      string
	configPath  string
	debug       bool
	metricsFile string
	minLength   int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("ferret-evtx", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.filePath, "f", "", "analyze one event log file (.evtx or .xml)")
	fs.StringVar(&opts.filePath, "filepath", "", "alias for -f")
	fs.StringVar(&opts.dirPath, "d", "", "analyze every event log file below a directory")
	fs.StringVar(&opts.dirPath, "dirpath", "", "alias for -d")
	fs.BoolVar(&opts.credits, "c", false, "print credits")
	fs.BoolVar(&opts.credits, "credits", false, "alias for -c")
	fs.StringVar(&opts.outCSV, "outcsv", "", "append findings to a CSV file")
	fs.StringVar(&opts.configPath, "config", rulestore.DefaultConfigFile, "config file")
	fs.BoolVar(&opts.debug, "debug", false, "write a debug log file")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format")
	fs.IntVar(&opts.minLength, "minlength", 0, "override the long command line threshold")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.filePath != "" && opts.dirPath != "" {
		return opts, fmt.Errorf("-f and -d are mutually exclusive")
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "[ERROR] %v\n", err)
		return 2
	}

	logger.SetConsole(stderr)
	if err := logger.Init(".", opts.debug); err != nil {
		fmt.Fprintf(stderr, "[WARN] %v\n", err)
	}
	defer logger.Close()

	rs := rulestore.NewRuleStore()

	if opts.credits {
		printCredits(rs, stdout)
	}
	if opts.filePath == "" && opts.dirPath == "" {
		return 0
	}

	cfg := rs.LoadConfig(opts.configPath)
	if opts.minLength > 0 {
		cfg.MinLength = opts.minLength
	}
	reg := rs.Build(cfg)

	set := detector.NewSet(reg, analyzer.New(reg, cfg.CacheSize), detector.Options{
		MinLength:     cfg.MinLength,
		CheckUnsigned: cfg.CheckUnsigned,
	})

	rep := output.New(stdout, output.Options{CSVPath: opts.outCSV})
	defer rep.Close()

	scanCfg := scan.DefaultConfig()
	scanCfg.MetricsFile = opts.metricsFile

	var svc *scan.Service
	if opts.dirPath != "" {
		bar := output.NewProgress(stderr)
		svc = scan.NewServiceWithProgress(set, rep, scanCfg, func(p scan.Progress) {
			if p.Done {
				bar.Done(p.Total)
				return
			}
			bar.Update(p.Current, p.Total, p.Path)
		})
		err = svc.ScanDir(opts.dirPath)
	} else {
		svc = scan.NewService(set, rep, scanCfg)
		err = svc.ScanFile(opts.filePath)
	}
	logger.Info("ferret-evtx %s run %s", Version, svc.RunID())

	if err != nil {
		logger.Alert("%v", err)
		return 1
	}

	sum := svc.Summary()
	rep.PrintSummary(sum.Files, sum.Records, sum.DecodeErrors)
	if err := svc.Finish(); err != nil {
		logger.Notice("%v", err)
	}
	return 0
}

func printCredits(rs *rulestore.RuleStore, w io.Writer) {
	data, err := os.ReadFile(rs.Resolve(creditsFile))
	if err != nil {
		logger.Alert("%s not found", creditsFile)
		return
	}
	w.Write(data)
}
