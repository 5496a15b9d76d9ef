//go:build windows

package collector

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"golang.org/x/sys/windows"
)

// Windows Event Log API constants
const (
	EvtQueryFilePath            = 0x2
	EvtQueryForwardDirection    = 0x100
	EvtQueryTolerateQueryErrors = 0x1000

	EvtRenderEventXml = 1

	ERROR_NO_MORE_ITEMS = 259
)

var (
	wevtapi       = windows.NewLazySystemDLL("wevtapi.dll")
	procEvtQuery  = wevtapi.NewProc("EvtQuery")
	procEvtNext   = wevtapi.NewProc("EvtNext")
	procEvtRender = wevtapi.NewProc("EvtRender")
	procEvtClose  = wevtapi.NewProc("EvtClose")
)

// readNativeFile decodes an .evtx file through wevtapi, oldest record
// first. Records are rendered to XML and parsed like an XML export.
func readNativeFile(path string, fn RecordFunc) error {
	if err := wevtapi.Load(); err != nil {
		return fmt.Errorf("%w: %v", ErrNativeUnavailable, err)
	}

	logger.Debug("EvtQuery file=%s", path)
	handle, err := evtQuery(path, "*", EvtQueryFilePath|EvtQueryForwardDirection|EvtQueryTolerateQueryErrors)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer evtClose(handle)

	const batchSize = 100
	eventHandles := make([]syscall.Handle, batchSize)

	for {
		returned, err := evtNext(handle, eventHandles)
		if err != nil {
			if err == syscall.Errno(ERROR_NO_MORE_ITEMS) {
				break
			}
			return fmt.Errorf("failed to get events: %w", err)
		}

		for i := uint32(0); i < returned; i++ {
			eventXML, err := renderEventXML(eventHandles[i])
			evtClose(eventHandles[i])
			if err != nil {
				fn(nil, fmt.Errorf("failed to render event: %w", err))
				continue
			}

			ev, err := ParseEventXML([]byte(eventXML))
			if err != nil {
				fn(nil, fmt.Errorf("failed to decode event: %w", err))
				continue
			}
			fn(ev, nil)
		}

		if returned == 0 {
			break
		}
	}
	return nil
}

// Windows API wrappers

func evtQuery(path, query string, flags uint32) (syscall.Handle, error) {
	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	queryPtr, err := syscall.UTF16PtrFromString(query)
	if err != nil {
		return 0, err
	}

	r1, _, err := procEvtQuery.Call(
		0, // Session (local)
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(queryPtr)),
		uintptr(flags),
	)

	if r1 == 0 {
		return 0, err
	}
	return syscall.Handle(r1), nil
}

func evtNext(queryHandle syscall.Handle, events []syscall.Handle) (uint32, error) {
	var returned uint32

	r1, _, err := procEvtNext.Call(
		uintptr(queryHandle),
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		uintptr(2000), // Timeout in ms
		0,             // Reserved
		uintptr(unsafe.Pointer(&returned)),
	)

	if r1 == 0 {
		return returned, err
	}
	return returned, nil
}

func evtClose(handle syscall.Handle) {
	if handle != 0 {
		procEvtClose.Call(uintptr(handle))
	}
}

func renderEventXML(eventHandle syscall.Handle) (string, error) {
	var bufferUsed uint32
	var propertyCount uint32

	// First call to get required buffer size
	procEvtRender.Call(
		0,
		uintptr(eventHandle),
		uintptr(EvtRenderEventXml),
		0,
		0,
		uintptr(unsafe.Pointer(&bufferUsed)),
		uintptr(unsafe.Pointer(&propertyCount)),
	)

	if bufferUsed == 0 {
		return "", errors.New("failed to get buffer size")
	}

	bufferSize := bufferUsed
	buffer := make([]uint16, (bufferSize+1)/2)

	r1, _, err := procEvtRender.Call(
		0,
		uintptr(eventHandle),
		uintptr(EvtRenderEventXml),
		uintptr(bufferSize),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bufferUsed)),
		uintptr(unsafe.Pointer(&propertyCount)),
	)

	if r1 == 0 {
		return "", err
	}

	return syscall.UTF16ToString(buffer), nil
}
