package collector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceEvent = `<Event xmlns="http://schemas.microsoft.com/win/2004/08/events/event">
  <System>
    <Provider Name="Service Control Manager" Guid="{555908d1-a6d7-4695-8e1e-26931d2012f4}" EventSourceName="Service Control Manager"/>
    <EventID Qualifiers="16384">7045</EventID>
    <TimeCreated SystemTime="2019-03-17T19:09:02.571942Z"/>
    <Channel>System</Channel>
    <Computer>WIN-77LTAPHIQ1R.example.corp</Computer>
  </System>
  <EventData>
    <Data Name="ServiceName">abcdefghABCDEFGH</Data>
    <Data Name="ImagePath">%COMSPEC% /b /c start /b /min powershell.exe -nop -w hidden</Data>
    <Data Name="ServiceType">user mode service</Data>
  </EventData>
</Event>`

const auditClearEvent = `<Event xmlns="http://schemas.microsoft.com/win/2004/08/events/event">
  <System>
    <Provider Name="Microsoft-Windows-Eventlog"/>
    <EventID>1102</EventID>
    <TimeCreated SystemTime="2019-03-18T10:00:00.000000Z"/>
    <Channel>Security</Channel>
  </System>
  <UserData>
    <LogFileCleared xmlns="http://manifests.microsoft.com/win/2004/08/windows/eventlog">
      <SubjectUserSid>S-1-5-21-1-2-3-500</SubjectUserSid>
      <SubjectUserName>alice</SubjectUserName>
      <SubjectDomainName>CORP</SubjectDomainName>
    </LogFileCleared>
  </UserData>
</Event>`

const renderedEvent = `<Event xmlns="http://schemas.microsoft.com/win/2004/08/events/event">
  <System>
    <Provider Name="EMET"/>
    <EventID>2</EventID>
    <TimeCreated SystemTime="2019-03-18T11:00:00.000000Z"/>
    <Channel>Application</Channel>
  </System>
  <EventData>
    <Data>first</Data>
    <Data>second</Data>
  </EventData>
  <RenderingInfo Culture="en-US">
    <Message>EMET detected HeapSpray mitigation</Message>
  </RenderingInfo>
</Event>`

func collect(t *testing.T, input string) ([]*types.Event, []error) {
	t.Helper()
	var events []*types.Event
	var errs []error
	err := ReadXML(strings.NewReader(input), func(ev *types.Event, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		events = append(events, ev)
	})
	require.NoError(t, err)
	return events, errs
}

func TestParseEventXML(t *testing.T) {
	ev, err := ParseEventXML([]byte(serviceEvent))
	require.NoError(t, err)

	assert.Equal(t, "System", ev.Channel)
	assert.Equal(t, "7045", ev.EventID)
	assert.Equal(t, "2019-03-17T19:09:02.571942Z", ev.TimeCreated)
	assert.Equal(t, "Service Control Manager", ev.Provider())
	assert.Nil(t, ev.Message)
	assert.Equal(t, "abcdefghABCDEFGH", ev.Field("ServiceName", ""))
	assert.Equal(t, "%COMSPEC% /b /c start /b /min powershell.exe -nop -w hidden", ev.Field("ImagePath", ""))
	assert.Equal(t, "default", ev.Field("Missing", "default"))
	assert.Nil(t, ev.UserData)
}

func TestParseEventXML_UserData(t *testing.T) {
	ev, err := ParseEventXML([]byte(auditClearEvent))
	require.NoError(t, err)

	assert.Equal(t, "alice", ev.UserField("SubjectUserName", ""))
	assert.Equal(t, "CORP", ev.UserField("SubjectDomainName", ""))
	assert.Empty(t, ev.EventData)
}

func TestParseEventXML_RenderingInfoAndUnnamedData(t *testing.T) {
	ev, err := ParseEventXML([]byte(renderedEvent))
	require.NoError(t, err)

	require.NotNil(t, ev.Message)
	assert.Equal(t, "EMET detected HeapSpray mitigation", *ev.Message)
	assert.Equal(t, "first", ev.Field("Data[0]", ""))
	assert.Equal(t, "second", ev.Field("Data[1]", ""))
	assert.Equal(t, "EMET", ev.Provider())
}

func TestReadXML_WrappedEventsInOrder(t *testing.T) {
	input := `<?xml version="1.0" encoding="utf-8"?>
<Events>
` + serviceEvent + "\n" + auditClearEvent + "\n" + renderedEvent + `
</Events>`

	events, errs := collect(t, input)
	assert.Empty(t, errs)
	require.Len(t, events, 3)
	assert.Equal(t, "7045", events[0].EventID)
	assert.Equal(t, "1102", events[1].EventID)
	assert.Equal(t, "2", events[2].EventID)
}

func TestReadXML_MalformedRecordDoesNotAbort(t *testing.T) {
	broken := `<Event><System><EventID>1</EventID><Channel>System</Channel></Syst></Event>`
	input := serviceEvent + broken + auditClearEvent

	events, errs := collect(t, input)
	require.Len(t, events, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "7045", events[0].EventID)
	assert.Equal(t, "1102", events[1].EventID)
}

func TestReadXML_UnterminatedEvent(t *testing.T) {
	input := `<Event><System><EventID>1</EventID>` + serviceEvent + `<Event><System>`

	events, errs := collect(t, input)
	require.Len(t, events, 1)
	assert.Equal(t, "7045", events[0].EventID)
	assert.Len(t, errs, 2)
}

func TestEventLogCollector_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "System.xml")
	require.NoError(t, os.WriteFile(path, []byte("<Events>"+serviceEvent+"<Event><bad></Event>"+"</Events>"), 0644))

	c := NewEventLogCollector()
	var ids []string
	err := c.ReadFile(path, func(ev *types.Event, err error) {
		if err == nil {
			ids = append(ids, ev.EventID)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"7045"}, ids)
	assert.Equal(t, int64(1), c.TotalRecords())
	assert.Equal(t, int64(1), c.TotalErrors())
}

func TestEventLogCollector_ReadFileErrors(t *testing.T) {
	c := NewEventLogCollector()
	noop := func(*types.Event, error) {}

	err := c.ReadFile(filepath.Join(t.TempDir(), "missing.xml"), noop)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = c.ReadFile("notes.txt", noop)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
