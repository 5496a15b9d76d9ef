// Package output renders findings to the console and the CSV sink
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// CSVHeader is the column row written to a new CSV report
var CSVHeader = []string{"Filepath", "Date", "EventID", "Message", "Result", "Command"}

// Options for the reporter
type Options struct {
	CSVPath string // Append findings to this file, if set
}

// Reporter writes each finding as a console block and, when configured,
// as a CSV row. Writes are serialized.
type Reporter struct {
	mu     sync.Mutex
	w      io.Writer
	st     styles
	csv    *csv.Writer
	file   *os.File
	csvErr bool
	count  int
}

// New creates a reporter writing console blocks to w. A CSV sink that
// cannot be opened is reported and left disabled.
func New(w io.Writer, opts Options) *Reporter {
	r := &Reporter{
		w:  w,
		st: newStyles(lipgloss.NewRenderer(w)),
	}
	if opts.CSVPath != "" {
		if err := r.openCSV(opts.CSVPath); err != nil {
			logger.Notice("csv output failed: %v", err)
		}
	}
	return r
}

func (r *Reporter) openCSV(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(CSVHeader); err != nil {
			f.Close()
			return err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			f.Close()
			return err
		}
	}
	r.file = f
	r.csv = cw
	logger.Info("CSV report: %s", path)
	return nil
}

// Report implements scan.Reporter
func (r *Reporter) Report(path string, f types.Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Kind == types.KindWarning {
		fmt.Fprintln(r.w, r.st.warn.Render("[WARN]")+" "+f.Result)
		return
	}

	r.count++
	r.printBlock(f)
	r.writeRow(path, f)
}

func (r *Reporter) printBlock(f types.Finding) {
	r.line("Date", f.Timestamp)
	r.line("EventID", f.EventID)
	r.line("Message", r.st.headline.Render(f.Headline))
	if f.ServiceName != "" {
		r.line("Results", "Service name: "+f.ServiceName)
	}
	if f.Command != "" {
		r.line("Command", f.Command)
	}
	for _, l := range f.ResultLines() {
		r.line("Results", l)
	}
	if f.Decoded != "" {
		r.line("Decoded", f.Decoded)
	}
	fmt.Fprintln(r.w)
}

// line prints a labeled value. Only single-line labels and headlines are
// styled; values are printed verbatim.
func (r *Reporter) line(label, value string) {
	fmt.Fprintf(r.w, "%s %s\n", r.st.label.Render(label+" :"), value)
}

func (r *Reporter) writeRow(path string, f types.Finding) {
	if r.csv == nil {
		return
	}
	r.csv.Write([]string{path, f.Timestamp, f.EventID, f.Headline, f.Result, f.Command})
	r.csv.Flush()
	if err := r.csv.Error(); err != nil {
		// one notice per failure streak
		if !r.csvErr {
			logger.Notice("csv output failed: %v", err)
		}
		r.csvErr = true
		return
	}
	r.csvErr = false
}

// Count returns the number of alert findings reported
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// PrintSummary prints the closing line of a run
func (r *Reporter) PrintSummary(files int, records, decodeErrors int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.st.clean.Render(fmt.Sprintf("%d findings", r.count))
	if r.count > 0 {
		count = r.st.headline.Render(fmt.Sprintf("%d findings", r.count))
	}
	fmt.Fprintf(r.w, "%s %d files, %d records, %d decode errors, %s\n",
		r.st.label.Render("Done :"), files, records, decodeErrors, count)
}

// Close flushes and closes the CSV sink
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	r.csv.Flush()
	err := r.csv.Error()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	r.csv = nil
	return err
}
