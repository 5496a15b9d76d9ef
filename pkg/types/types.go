// Package types defines the core data structures for Ferret EVTX
package types

import (
	"strings"
)

// Channel identifies the log source an event belongs to
type Channel int

const (
	ChannelUnknown Channel = iota
	ChannelSecurity
	ChannelSystem
	ChannelApplication
	ChannelAppLocker
	ChannelSysmon
	ChannelPowerShell
)

// Channel names as they appear in System/Channel
const (
	ChannelNameSecurity    = "Security"
	ChannelNameSystem      = "System"
	ChannelNameApplication = "Application"
	ChannelNameAppLocker   = "Microsoft-Windows-AppLocker/EXE and DLL"
	ChannelNameSysmon      = "Microsoft-Windows-Sysmon/Operational"
	ChannelNamePowerShell  = "Microsoft-Windows-PowerShell/Operational"
)

// ParseChannel maps a raw channel name to a Channel. Matching is exact.
func ParseChannel(name string) Channel {
	switch name {
	case ChannelNameSecurity:
		return ChannelSecurity
	case ChannelNameSystem:
		return ChannelSystem
	case ChannelNameApplication:
		return ChannelApplication
	case ChannelNameAppLocker:
		return ChannelAppLocker
	case ChannelNameSysmon:
		return ChannelSysmon
	case ChannelNamePowerShell:
		return ChannelPowerShell
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelSecurity:
		return ChannelNameSecurity
	case ChannelSystem:
		return ChannelNameSystem
	case ChannelApplication:
		return ChannelNameApplication
	case ChannelAppLocker:
		return ChannelNameAppLocker
	case ChannelSysmon:
		return ChannelNameSysmon
	case ChannelPowerShell:
		return ChannelNamePowerShell
	default:
		return "Unknown"
	}
}

// Event represents one decoded event log record.
// Events are built by a collector and never modified afterwards.
type Event struct {
	Channel      string            `json:"channel"`
	EventID      string            `json:"event_id"`
	TimeCreated  string            `json:"time_created"`
	ProviderName *string           `json:"provider_name,omitempty"`
	Message      *string           `json:"message,omitempty"`
	Computer     string            `json:"computer,omitempty"`
	UserData     map[string]string `json:"user_data,omitempty"`
	EventData    map[string]string `json:"event_data,omitempty"`
}

// Field returns the named EventData value, or def when the field is absent.
func (e *Event) Field(name, def string) string {
	if v, ok := e.EventData[name]; ok {
		return v
	}
	return def
}

// LookupField returns the named EventData value and whether it was present.
func (e *Event) LookupField(name string) (string, bool) {
	v, ok := e.EventData[name]
	return v, ok
}

// UserField returns the named UserData value, or def when absent.
func (e *Event) UserField(name, def string) string {
	if v, ok := e.UserData[name]; ok {
		return v
	}
	return def
}

// MessageOr returns the message text, or def when the event carries none.
func (e *Event) MessageOr(def string) string {
	if e.Message == nil {
		return def
	}
	return *e.Message
}

// Provider returns the provider name, or "" when absent.
func (e *Event) Provider() string {
	if e.ProviderName == nil {
		return ""
	}
	return *e.ProviderName
}

// Rule domains
const (
	DomainCommandLine = 0
	DomainName        = 1
)

// FindingKind distinguishes alerts from operator notices
type FindingKind int

const (
	KindAlert FindingKind = iota
	KindWarning
)

// Finding represents one emitted suspicious-activity report
type Finding struct {
	Kind        FindingKind `json:"kind"`
	Timestamp   string      `json:"timestamp"`
	EventID     string      `json:"event_id"`
	Headline    string      `json:"headline"`
	Command     string      `json:"command,omitempty"`
	Result      string      `json:"result,omitempty"`
	ServiceName string      `json:"service_name,omitempty"`
	Decoded     string      `json:"decoded,omitempty"`
}

// Headline constants
const (
	HeadlineSuspiciousCommand  = "Suspicious Command Line"
	HeadlineSuspiciousService  = "Suspicious Service Command"
	HeadlineSystemLogClear     = "System Log Clear"
	HeadlineNewService         = "New Service Created"
	HeadlineInteractiveService = "Interactive Service Warning"
	HeadlineSuspiciousSvcName  = "Suspicious Service Name"
	HeadlineEventLogStopped    = "Event Log Service Stopped"
	HeadlineEventLogStarted    = "Event Log Service Started"
	HeadlineEMETBlock          = "EMET Block"
	HeadlineAppLockerWarning   = "AppLocker Warning"
	HeadlineAppLockerBlock     = "AppLocker Block"
	HeadlineUnsignedImage      = "Unsigned Image (DLL)"
	HeadlineAuditLogClear      = "Audit Log Clear"
	HeadlineSpecialLogon       = "Special Logon"
	HeadlineNewUser            = "New User Created"
	HeadlineGroupMember        = "User Added To Group"
	HeadlineFailedLogon        = "Failed Logon"
	HeadlinePrivilegeUse       = "Sensitive Privilege Use"
	HeadlineExplicitLogon      = "Explicit Credential Logon"
	HeadlineEMETMessageMissing = "EMET Message Missing"
)

// ResultLines splits a finding result into its non-empty lines.
func (f *Finding) ResultLines() []string {
	var lines []string
	for _, l := range strings.Split(f.Result, "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
