package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceFinding = types.Finding{
	Kind:        types.KindAlert,
	Timestamp:   "2019-03-17T19:09:02.571942Z",
	EventID:     "7045",
	Headline:    types.HeadlineSuspiciousService,
	Command:     "%COMSPEC% /b /c start /b /min powershell.exe -nop -w hidden -encodedcommand AAAA",
	Result:      "Long Command Line: greater than 10 bytes\nBase64-encoded function",
	ServiceName: "abcdefghABCDEFGH",
	Decoded:     "Write-Host hello",
}

func TestReporter_ConsoleBlock(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{})
	r.Report("System.evtx", serviceFinding)

	assert.Equal(t, "Date : 2019-03-17T19:09:02.571942Z\n"+
		"EventID : 7045\n"+
		"Message : Suspicious Service Command\n"+
		"Results : Service name: abcdefghABCDEFGH\n"+
		"Command : %COMSPEC% /b /c start /b /min powershell.exe -nop -w hidden -encodedcommand AAAA\n"+
		"Results : Long Command Line: greater than 10 bytes\n"+
		"Results : Base64-encoded function\n"+
		"Decoded : Write-Host hello\n"+
		"\n", buf.String())
	assert.Equal(t, 1, r.Count())
}

func TestReporter_Warning(t *testing.T) {
	var buf bytes.Buffer
	csvPath := filepath.Join(t.TempDir(), "out.csv")
	r := New(&buf, Options{CSVPath: csvPath})
	r.Report("Application.evtx", types.Finding{
		Kind:     types.KindWarning,
		EventID:  "2",
		Headline: types.HeadlineEMETMessageMissing,
		Result:   "EMET Message field is blank. Install EMET locally to see full details of this alert",
	})
	require.NoError(t, r.Close())

	assert.Equal(t, "[WARN] EMET Message field is blank. Install EMET locally to see full details of this alert\n", buf.String())
	assert.Equal(t, 0, r.Count())

	rows := readCSV(t, csvPath)
	assert.Equal(t, [][]string{CSVHeader}, rows)
}

func TestReporter_CSVAppends(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	for i := 0; i < 2; i++ {
		r := New(&bytes.Buffer{}, Options{CSVPath: csvPath})
		r.Report("System.evtx", serviceFinding)
		require.NoError(t, r.Close())
	}

	rows := readCSV(t, csvPath)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Filepath", "Date", "EventID", "Message", "Result", "Command"}, rows[0])
	assert.Equal(t, []string{
		"System.evtx",
		"2019-03-17T19:09:02.571942Z",
		"7045",
		"Suspicious Service Command",
		"Long Command Line: greater than 10 bytes\nBase64-encoded function",
		"%COMSPEC% /b /c start /b /min powershell.exe -nop -w hidden -encodedcommand AAAA",
	}, rows[1])
	assert.Equal(t, rows[1], rows[2])
}

func TestReporter_CSVOpenFailureKeepsConsole(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{CSVPath: filepath.Join(t.TempDir(), "missing", "dir", "out.csv")})
	r.Report("System.evtx", serviceFinding)

	assert.Contains(t, buf.String(), "Message : Suspicious Service Command")
	assert.NoError(t, r.Close())
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.Update(1, 4, filepath.Join("logs", "Security.evtx"))
	p.Done(4)

	out := buf.String()
	assert.Contains(t, out, "1/4 Security.evtx")
	assert.Contains(t, out, "4/4")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
