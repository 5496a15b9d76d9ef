// Package collector decodes event log files into types.Event records
package collector

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

var (
	// ErrUnsupportedFormat is returned for files with an unknown extension
	ErrUnsupportedFormat = errors.New("unsupported event log format")
	// ErrNativeUnavailable is returned when .evtx decoding is not available
	// on this platform
	ErrNativeUnavailable = errors.New("native .evtx decoding requires Windows; export the log to XML with wevtutil")
)

// RecordFunc receives each record in file order. Exactly one of ev and err
// is non-nil; err reports a record that could not be decoded.
type RecordFunc func(ev *types.Event, err error)

// Extensions lists the file extensions the collector can read
var Extensions = []string{".evtx", ".xml"}

// EventLogCollector reads event log files
type EventLogCollector struct {
	totalRecords int64
	totalErrors  int64
}

// NewEventLogCollector creates a new event log collector
func NewEventLogCollector() *EventLogCollector {
	return &EventLogCollector{}
}

// TotalRecords returns the number of records decoded so far
func (c *EventLogCollector) TotalRecords() int64 {
	return c.totalRecords
}

// TotalErrors returns the number of records that failed to decode
func (c *EventLogCollector) TotalErrors() int64 {
	return c.totalErrors
}

// ReadFile decodes every record of path and passes it to fn. The returned
// error means the file as a whole could not be read.
func (c *EventLogCollector) ReadFile(path string, fn RecordFunc) error {
	start := time.Now()
	logger.Debug("Reading %s", path)

	counting := func(ev *types.Event, err error) {
		if err != nil {
			c.totalErrors++
		} else {
			c.totalRecords++
		}
		fn(ev, err)
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		err = readXMLFile(path, counting)
	case ".evtx":
		err = readNativeFile(path, counting)
	default:
		err = fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	logger.Timing("EventLogCollector.ReadFile "+filepath.Base(path), start)
	return err
}
