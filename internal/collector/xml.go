package collector

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// maxEventSize bounds a single <Event> element in an XML export
const maxEventSize = 64 << 20

var (
	eventOpen  = regexp.MustCompile(`<Event[\s>]`)
	eventClose = []byte("</Event>")
)

// XML parsing structures

type eventXML struct {
	XMLName       xml.Name      `xml:"Event"`
	System        systemXML     `xml:"System"`
	EventData     eventDataXML  `xml:"EventData"`
	UserData      *anyXML       `xml:"UserData"`
	RenderingInfo *renderingXML `xml:"RenderingInfo"`
}

type systemXML struct {
	Provider    providerXML    `xml:"Provider"`
	EventID     string         `xml:"EventID"`
	TimeCreated timeCreatedXML `xml:"TimeCreated"`
	Computer    string         `xml:"Computer"`
	Channel     string         `xml:"Channel"`
	Message     *string        `xml:"Message"`
}

type providerXML struct {
	Name *string `xml:"Name,attr"`
}

type timeCreatedXML struct {
	SystemTime string `xml:"SystemTime,attr"`
}

type eventDataXML struct {
	Data []dataXML `xml:"Data"`
}

type dataXML struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

type renderingXML struct {
	Message *string `xml:"Message"`
}

// anyXML captures an arbitrary element tree
type anyXML struct {
	XMLName  xml.Name
	Content  string   `xml:",chardata"`
	Children []anyXML `xml:",any"`
}

// ParseEventXML decodes one <Event> element
func ParseEventXML(data []byte) (*types.Event, error) {
	var event eventXML
	if err := xml.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	ev := &types.Event{
		Channel:      strings.TrimSpace(event.System.Channel),
		EventID:      strings.TrimSpace(event.System.EventID),
		TimeCreated:  event.System.TimeCreated.SystemTime,
		ProviderName: event.System.Provider.Name,
		Message:      event.System.Message,
		Computer:     strings.TrimSpace(event.System.Computer),
		EventData:    make(map[string]string, len(event.EventData.Data)),
	}
	if ev.Message == nil && event.RenderingInfo != nil {
		ev.Message = event.RenderingInfo.Message
	}

	for i, d := range event.EventData.Data {
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("Data[%d]", i)
		}
		ev.EventData[name] = d.Value
	}

	if event.UserData != nil {
		ev.UserData = make(map[string]string)
		flatten(event.UserData, ev.UserData)
	}

	return ev, nil
}

// flatten records the text of every leaf element by local name
func flatten(n *anyXML, out map[string]string) {
	if len(n.Children) == 0 {
		out[n.XMLName.Local] = strings.TrimSpace(n.Content)
		return
	}
	for i := range n.Children {
		flatten(&n.Children[i], out)
	}
}

func readXMLFile(path string, fn RecordFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadXML(f, fn)
}

// ReadXML decodes a stream of <Event> elements, optionally wrapped in an
// <Events> root. Each element is decoded on its own so a malformed record
// is reported through fn and reading continues with the next one.
func ReadXML(r io.Reader, fn RecordFunc) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	sc.Split(splitEvents)

	for sc.Scan() {
		chunk := sc.Bytes()
		opens := eventOpen.FindAllIndex(chunk, -1)
		if len(opens) == 0 {
			if bytes.Contains(chunk, eventClose) {
				fn(nil, errors.New("closing </Event> without opening tag"))
			}
			continue
		}
		// earlier opening tags in the same chunk were never closed
		for range opens[:len(opens)-1] {
			fn(nil, errors.New("unterminated <Event> element"))
		}
		ev, err := ParseEventXML(chunk[opens[len(opens)-1][0]:])
		if err != nil {
			fn(nil, fmt.Errorf("failed to decode event: %w", err))
			continue
		}
		fn(ev, nil)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	return nil
}

// splitEvents is a bufio.SplitFunc yielding text up to and including each
// </Event>. Trailing text is yielded only if it opens an event.
func splitEvents(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.Index(data, eventClose); i >= 0 {
		end := i + len(eventClose)
		return end, data[:end], nil
	}
	if !atEOF {
		return 0, nil, nil
	}
	if len(data) == 0 {
		return 0, nil, nil
	}
	if eventOpen.Match(data) {
		return len(data), data, nil
	}
	return len(data), nil, nil
}
