package detector

import (
	"fmt"
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// groupScopes names the group type for each membership event
var groupScopes = map[string]string{
	"4728": "global",
	"4732": "local",
	"4756": "universal",
}

// sensitivePrivileges are the privileges worth reporting on 4673/4674
var sensitivePrivileges = []string{
	"SeDebugPrivilege",
	"SeTcbPrivilege",
	"SeLoadDriverPrivilege",
	"SeBackupPrivilege",
	"SeRestorePrivilege",
	"SeTakeOwnershipPrivilege",
	"SeImpersonatePrivilege",
	"SeAssignPrimaryTokenPrivilege",
}

// serviceAccounts never produce a special logon finding
var serviceAccounts = map[string]bool{
	"SYSTEM":          true,
	"LOCAL SERVICE":   true,
	"NETWORK SERVICE": true,
	"ANONYMOUS LOGON": true,
}

// Security reports account, logon and audit events. Each event is judged
// on its own.
type Security struct {
	base
}

// NewSecurity creates the Security channel detector
func NewSecurity(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) *Security {
	return &Security{base: newBase(reg, an, opts)}
}

// Detect implements Detector
func (d *Security) Detect(ev *types.Event) []types.Finding {
	switch ev.EventID {
	case "4688":
		return d.processCreate(ev)
	case "4672":
		return d.specialLogon(ev)
	case "4720":
		return d.userCreated(ev)
	case "4728", "4732", "4756":
		return d.groupMemberAdded(ev)
	case "4625":
		return d.failedLogon(ev)
	case "4673", "4674":
		return d.privilegeUse(ev)
	case "4648":
		return d.explicitLogon(ev)
	case "1102":
		return d.auditLogCleared(ev)
	}
	return nil
}

func (d *Security) processCreate(ev *types.Event) []types.Finding {
	commandLine := ev.Field("CommandLine", "")
	if commandLine == "" {
		return nil
	}
	return d.checkCommand(nil, analyzer.Request{
		EventID:   ev.EventID,
		Command:   commandLine,
		Creator:   ev.Field("ParentProcessName", ""),
		Timestamp: ev.TimeCreated,
	})
}

func (d *Security) specialLogon(ev *types.Event) []types.Finding {
	user := ev.Field("SubjectUserName", "")
	if user == "" || serviceAccounts[strings.ToUpper(user)] || strings.HasSuffix(user, "$") ||
		strings.HasPrefix(user, "DWM-") || strings.HasPrefix(user, "UMFD-") {
		return nil
	}
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineSpecialLogon,
		Result: joinLines(
			fmt.Sprintf("Special privileges assigned to new logon: %s", qualified(ev, "Subject")),
			privileges(ev.Field("PrivilegeList", "")),
		),
	}}
}

func (d *Security) userCreated(ev *types.Event) []types.Finding {
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineNewUser,
		Result: joinLines(
			fmt.Sprintf("New user created: %s", qualified(ev, "Target")),
			labeled("User SID", ev.Field("TargetSid", "")),
			labeled("Created by", ev.Field("SubjectUserName", "")),
		),
	}}
}

func (d *Security) groupMemberAdded(ev *types.Event) []types.Finding {
	member := ev.Field("MemberName", "")
	if member == "" || member == "-" {
		member = ev.Field("MemberSid", "")
	}
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineGroupMember,
		Result: joinLines(
			fmt.Sprintf("User added to %s group %s: %s", groupScopes[ev.EventID], ev.Field("TargetUserName", ""), member),
			labeled("Added by", ev.Field("SubjectUserName", "")),
		),
	}}
}

func (d *Security) failedLogon(ev *types.Event) []types.Finding {
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineFailedLogon,
		Result: joinLines(
			fmt.Sprintf("Failed logon: %s", qualified(ev, "Target")),
			labeled("Logon type", ev.Field("LogonType", "")),
			labeled("Source address", ev.Field("IpAddress", "")),
			labeled("Status", ev.Field("Status", "")),
		),
	}}
}

func (d *Security) privilegeUse(ev *types.Event) []types.Finding {
	privs := ev.Field("PrivilegeList", "")
	var hit []string
	for _, p := range sensitivePrivileges {
		if strings.Contains(privs, p) {
			hit = append(hit, p)
		}
	}
	if len(hit) == 0 {
		return nil
	}
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlinePrivilegeUse,
		Command:   ev.Field("ProcessName", ""),
		Result: joinLines(
			fmt.Sprintf("Sensitive privilege use: %s", strings.Join(hit, ", ")),
			labeled("Account", qualified(ev, "Subject")),
		),
	}}
}

func (d *Security) explicitLogon(ev *types.Event) []types.Finding {
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineExplicitLogon,
		Command:   ev.Field("ProcessName", ""),
		Result: joinLines(
			fmt.Sprintf("Logon with explicit credentials: %s as %s", qualified(ev, "Subject"), qualified(ev, "Target")),
			labeled("Target server", ev.Field("TargetServerName", "")),
		),
	}}
}

// auditLogCleared reads the clearing account from the LogFileCleared
// UserData block.
func (d *Security) auditLogCleared(ev *types.Event) []types.Finding {
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineAuditLogClear,
		Result: joinLines(
			"The Audit log was cleared.",
			labeled("Account", qualifiedUser(ev.UserField("SubjectDomainName", ""), ev.UserField("SubjectUserName", ""))),
		),
	}}
}

// qualified returns DOMAIN\user for the Subject or Target fields
func qualified(ev *types.Event, prefix string) string {
	return qualifiedUser(ev.Field(prefix+"DomainName", ""), ev.Field(prefix+"UserName", ""))
}

func qualifiedUser(domain, user string) string {
	if domain == "" || domain == "-" {
		return user
	}
	return domain + `\` + user
}

func labeled(label, value string) string {
	if value == "" || value == "-" {
		return ""
	}
	return label + ": " + value
}

func privileges(list string) string {
	fields := strings.Fields(list)
	if len(fields) == 0 {
		return ""
	}
	return "Privileges: " + strings.Join(fields, ", ")
}
