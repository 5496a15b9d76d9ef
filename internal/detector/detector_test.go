package detector

import (
	"regexp"
	"testing"

	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ts = "2019-03-17T19:09:02.571942Z"

func testSet(opts Options) *Set {
	reg := rulestore.NewRegistry([]rulestore.Rule{
		{Domain: types.DomainName, Pattern: regexp.MustCompile(`^[a-zA-Z]{16}$`), Description: "Metasploit-style service name: 16 characters"},
		{Domain: types.DomainCommandLine, Pattern: regexp.MustCompile(`(?i)mimikatz`), Description: "Command referencing Mimikatz"},
	}, []*regexp.Regexp{regexp.MustCompile(`^C:\\Windows\\System32\\svchost\.exe -k [a-z]+$`)})
	return NewSet(reg, analyzer.New(reg, 64), opts)
}

func event(channel, id string, data map[string]string) *types.Event {
	return &types.Event{
		Channel:     channel,
		EventID:     id,
		TimeCreated: ts,
		EventData:   data,
	}
}

func strPtr(s string) *string { return &s }

func TestSystem_LogCleared(t *testing.T) {
	set := testSet(DefaultOptions())

	got := set.System.Detect(event(types.ChannelNameSystem, "104", nil))
	require.Len(t, got, 1)
	assert.Equal(t, types.HeadlineSystemLogClear, got[0].Headline)
	assert.Equal(t, "The System log was cleared.", got[0].Result)
	assert.Equal(t, ts, got[0].Timestamp)
	assert.Equal(t, "104", got[0].EventID)
}

func TestSystem_EventLogServiceChanged(t *testing.T) {
	set := testSet(DefaultOptions())

	tests := []struct {
		param1, param2 string
		headline       string
	}{
		{"Windows Event Log", "disabled", types.HeadlineEventLogStopped},
		{"Windows Event Log", "auto start", types.HeadlineEventLogStarted},
		{"Windows Event Log", "demand start", ""},
		{"Print Spooler", "disabled", ""},
	}
	for _, tt := range tests {
		t.Run(tt.param1+"/"+tt.param2, func(t *testing.T) {
			got := set.System.Detect(event(types.ChannelNameSystem, "7040", map[string]string{
				"param1": tt.param1,
				"param2": tt.param2,
			}))
			if tt.headline == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.headline, got[0].Headline)
		})
	}
}

func TestSystem_NewServiceCreated(t *testing.T) {
	set := testSet(Options{MinLength: 40})

	t.Run("suspicious name only", func(t *testing.T) {
		got := set.System.Detect(event(types.ChannelNameSystem, "7045", map[string]string{
			"ServiceName": "abcdefghABCDEFGH",
			"ImagePath":   `C:\Windows\svc.exe`,
		}))
		require.Len(t, got, 1)
		assert.Equal(t, types.HeadlineNewService, got[0].Headline)
		assert.Equal(t, "abcdefghABCDEFGH", got[0].ServiceName)
		assert.Equal(t, `C:\Windows\svc.exe`, got[0].Command)
		assert.Equal(t, "Metasploit-style service name: 16 characters", got[0].Result)
	})

	t.Run("suspicious image path only", func(t *testing.T) {
		imagePath := `C:\Windows\Temp\mimikatz.exe privilege::debug exit`
		got := set.System.Detect(event(types.ChannelNameSystem, "7045", map[string]string{
			"ServiceName": "Updater",
			"ImagePath":   imagePath,
		}))
		require.Len(t, got, 1)
		assert.Equal(t, types.HeadlineSuspiciousService, got[0].Headline)
		assert.Equal(t, "Updater", got[0].ServiceName)
		assert.Equal(t, imagePath, got[0].Command)
		assert.Equal(t, "Long Command Line: greater than 40 bytes\nCommand referencing Mimikatz", got[0].Result)
	})

	t.Run("both", func(t *testing.T) {
		got := set.System.Detect(event(types.ChannelNameSystem, "7045", map[string]string{
			"ServiceName": "abcdefghABCDEFGH",
			"ImagePath":   `mimikatz.exe`,
		}))
		require.Len(t, got, 2)
		assert.Equal(t, types.HeadlineNewService, got[0].Headline)
		assert.Equal(t, types.HeadlineSuspiciousService, got[1].Headline)
	})

	t.Run("whitelisted benign service", func(t *testing.T) {
		got := set.System.Detect(event(types.ChannelNameSystem, "7045", map[string]string{
			"ServiceName": "netsvcs",
			"ImagePath":   `C:\Windows\System32\svchost.exe -k netsvcs`,
		}))
		assert.Empty(t, got)
	})
}

func TestSystem_InteractiveServiceWarning(t *testing.T) {
	set := testSet(DefaultOptions())

	got := set.System.Detect(event(types.ChannelNameSystem, "7030", map[string]string{
		"param1": "Printer Extensions and Notifications",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, types.HeadlineInteractiveService, got[0].Headline)
	assert.Equal(t, "Printer Extensions and Notifications", got[0].ServiceName)
	assert.Equal(t, "Malware (and some third party software) trigger this warning", got[0].Result)

	got = set.System.Detect(event(types.ChannelNameSystem, "7030", map[string]string{
		"param1": "abcdefghABCDEFGH",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, []string{
		"Malware (and some third party software) trigger this warning",
		"Metasploit-style service name: 16 characters",
	}, got[0].ResultLines())
}

func TestSystem_SuspiciousServiceName(t *testing.T) {
	set := testSet(DefaultOptions())

	assert.Empty(t, set.System.Detect(event(types.ChannelNameSystem, "7036", map[string]string{
		"param1": "Windows Update",
	})))

	got := set.System.Detect(event(types.ChannelNameSystem, "7036", map[string]string{
		"param1": "ijklmnopIJKLMNOP",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, types.HeadlineSuspiciousSvcName, got[0].Headline)
	assert.Equal(t, "ijklmnopIJKLMNOP", got[0].ServiceName)
}

func TestSystem_IgnoresOtherEvents(t *testing.T) {
	set := testSet(DefaultOptions())
	assert.Empty(t, set.System.Detect(event(types.ChannelNameSystem, "6005", nil)))
}

func TestApplication_EMET(t *testing.T) {
	set := testSet(DefaultOptions())

	message := "EMET detected HeapSpray mitigation and will close the application: iexplore.exe\r\n" +
		"\r\n" +
		"HeapSpray check failed:\r\n" +
		"Application: C:\\Program Files\\Internet Explorer\\iexplore.exe\r\n" +
		"WIN-HOST\\alice\r\n" +
		"Module: "

	t.Run("block", func(t *testing.T) {
		ev := event(types.ChannelNameApplication, "2", nil)
		ev.ProviderName = strPtr("EMET")
		ev.Message = strPtr(message)

		got := set.Application.Detect(ev)
		require.Len(t, got, 1)
		assert.Equal(t, types.KindAlert, got[0].Kind)
		assert.Equal(t, types.HeadlineEMETBlock, got[0].Headline)
		assert.Equal(t, `C:\Program Files\Internet Explorer\iexplore.exe`, got[0].Command)
		assert.Equal(t, "EMET detected HeapSpray mitigation and will close the application: iexplore.exe\nUsername: WIN-HOST\\alice", got[0].Result)
	})

	t.Run("missing message", func(t *testing.T) {
		ev := event(types.ChannelNameApplication, "2", nil)
		ev.ProviderName = strPtr("EMET")

		got := set.Application.Detect(ev)
		require.Len(t, got, 1)
		assert.Equal(t, types.KindWarning, got[0].Kind)
		assert.Equal(t, "EMET Message field is blank. Install EMET locally to see full details of this alert", got[0].Result)
	})

	t.Run("short message", func(t *testing.T) {
		ev := event(types.ChannelNameApplication, "2", nil)
		ev.ProviderName = strPtr("EMET")
		ev.Message = strPtr("line0\nline1")
		assert.Empty(t, set.Application.Detect(ev))
	})

	t.Run("other provider", func(t *testing.T) {
		ev := event(types.ChannelNameApplication, "2", nil)
		ev.ProviderName = strPtr("Application Error")
		ev.Message = strPtr(message)
		assert.Empty(t, set.Application.Detect(ev))
	})

	t.Run("no provider", func(t *testing.T) {
		ev := event(types.ChannelNameApplication, "2", nil)
		ev.Message = strPtr(message)
		assert.Empty(t, set.Application.Detect(ev))
	})
}

func TestAppLocker(t *testing.T) {
	set := testSet(DefaultOptions())
	message := `%OSDRIVE%\USERS\ALICE\APPDATA\LOCAL\TEMP\PAYLOAD.EXE was prevented from running.`

	for id, headline := range map[string]string{
		"8003": types.HeadlineAppLockerWarning,
		"8004": types.HeadlineAppLockerBlock,
	} {
		t.Run(id, func(t *testing.T) {
			ev := event(types.ChannelNameAppLocker, id, nil)
			ev.Message = strPtr(message)

			got := set.AppLocker.Detect(ev)
			require.Len(t, got, 1)
			assert.Equal(t, headline, got[0].Headline)
			assert.Equal(t, `%OSDRIVE%\USERS\ALICE\APPDATA\LOCAL\TEMP\PAYLOAD.EXE`, got[0].Command)
			assert.Equal(t, message, got[0].Result)
		})
	}

	assert.Empty(t, set.AppLocker.Detect(event(types.ChannelNameAppLocker, "8002", nil)))
}

func TestSysmon_ProcessCreate(t *testing.T) {
	set := testSet(DefaultOptions())

	got := set.Sysmon.Detect(event(types.ChannelNameSysmon, "1", map[string]string{
		"CommandLine": "powershell",
		"ParentImage": "PSEXESVC",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, types.HeadlineSuspiciousCommand, got[0].Headline)
	assert.Equal(t, "PowerShell launched via PsExec: PSEXESVC", got[0].Result)

	assert.Empty(t, set.Sysmon.Detect(event(types.ChannelNameSysmon, "1", map[string]string{
		"ParentImage": "PSEXESVC",
	})))
}

func TestSysmon_UnsignedImage(t *testing.T) {
	data := map[string]string{
		"Signed":      "false",
		"ImageLoaded": `C:\Users\alice\AppData\Local\Temp\evil.dll`,
		"Image":       `C:\Windows\System32\rundll32.exe`,
	}

	off := testSet(DefaultOptions())
	assert.Empty(t, off.Sysmon.Detect(event(types.ChannelNameSysmon, "7", data)))

	on := testSet(Options{CheckUnsigned: true})
	got := on.Sysmon.Detect(event(types.ChannelNameSysmon, "7", data))
	require.Len(t, got, 1)
	assert.Equal(t, types.HeadlineUnsignedImage, got[0].Headline)
	assert.Equal(t, `C:\Users\alice\AppData\Local\Temp\evil.dll`, got[0].Command)
	assert.Equal(t, `Loaded by: C:\Windows\System32\rundll32.exe`, got[0].Result)

	data["Signed"] = "true"
	assert.Empty(t, on.Sysmon.Detect(event(types.ChannelNameSysmon, "7", data)))
}

func TestPowerShell_PipelineExecution(t *testing.T) {
	set := testSet(DefaultOptions())

	got := set.PowerShell.Detect(event(types.ChannelNamePowerShell, "4103", map[string]string{
		"ContextInfo": "        Severity = Informational\r\n        Host Name = ConsoleHost\r\n        Host Version = 5.1\r\n" +
			"        Host Application = powershell.exe -c Invoke-Mimikatz\r\n        Engine Version = 5.1\r\n",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "powershell.exe -c Invoke-Mimikatz", got[0].Command)
	assert.Equal(t, "Command referencing Mimikatz", got[0].Result)

	got = set.PowerShell.Detect(event(types.ChannelNamePowerShell, "4103", map[string]string{
		"ContextInfo": "        ホスト アプリケーション = mimikatz.exe\r\n        エンジン バージョン = 5.1\r\n",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "mimikatz.exe", got[0].Command)

	assert.Empty(t, set.PowerShell.Detect(event(types.ChannelNamePowerShell, "4103", map[string]string{
		"ContextInfo": "Severity = Informational",
	})))
}

func TestPowerShell_ScriptBlock(t *testing.T) {
	set := testSet(DefaultOptions())

	got := set.PowerShell.Detect(event(types.ChannelNamePowerShell, "4104", map[string]string{
		"ScriptBlockText": "Invoke-Mimikatz -DumpCreds",
		"Path":            "",
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "Invoke-Mimikatz -DumpCreds", got[0].Command)

	assert.Empty(t, set.PowerShell.Detect(event(types.ChannelNamePowerShell, "4104", map[string]string{
		"ScriptBlockText": "Invoke-Mimikatz -DumpCreds",
		"Path":            `C:\scripts\audit.ps1`,
	})))
	assert.Empty(t, set.PowerShell.Detect(event(types.ChannelNamePowerShell, "4104", map[string]string{
		"ScriptBlockText": "",
	})))
}
