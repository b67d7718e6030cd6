// Package audit flags default or weak database credentials found in a
// WordPress configuration. The known-weak value sets come in as explicit
// configuration data, not package constants.
package audit

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"wpback/internal/wpconfig"
)

// Lists are the known-default values to flag, supplied by configuration.
type Lists struct {
	Names     []string
	Users     []string
	Passwords []string
}

// Severity of one finding.
type Severity string

const (
	SeverityAlert Severity = "alert"
	SeverityWarn  Severity = "warn"
)

// Finding is one flagged credential field.
type Finding struct {
	Field    string
	Severity Severity
	Message  string
}

// Run checks creds against the weak-value lists.
func Run(creds *wpconfig.Credentials, lists Lists) []Finding {
	var findings []Finding

	if contains(lists.Names, creds.Name) {
		findings = append(findings, Finding{
			Field:    "DB_NAME",
			Severity: SeverityAlert,
			Message:  fmt.Sprintf("DB_NAME %q is a common default", creds.Name),
		})
	}
	if contains(lists.Users, creds.User) {
		findings = append(findings, Finding{
			Field:    "DB_USER",
			Severity: SeverityAlert,
			Message:  fmt.Sprintf("DB_USER %q is a common default", creds.User),
		})
	}
	if contains(lists.Passwords, creds.Password) {
		findings = append(findings, Finding{
			Field:    "DB_PASSWORD",
			Severity: SeverityAlert,
			Message:  "DB_PASSWORD is weak or empty",
		})
	}
	if creds.TablePrefix == "wp_" {
		findings = append(findings, Finding{
			Field:    "TABLE_PREFIX",
			Severity: SeverityWarn,
			Message:  "table prefix is the default wp_ (minor security concern)",
		})
	}
	return findings
}

var (
	credColor  = color.New(color.FgCyan)
	alertColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow)
)

// Report prints the resolved credentials and any findings to w.
func Report(w io.Writer, creds *wpconfig.Credentials, findings []Finding) {
	credColor.Fprintf(w, "DB_NAME:      %s\n", creds.Name)
	credColor.Fprintf(w, "DB_USER:      %s\n", creds.User)
	credColor.Fprintf(w, "DB_PASSWORD:  %s\n", creds.Password)
	credColor.Fprintf(w, "DB_HOST:      %s\n", creds.Host)
	credColor.Fprintf(w, "DB_PORT:      %d\n", creds.Port)
	credColor.Fprintf(w, "TABLE_PREFIX: %s\n", creds.TablePrefix)

	hasAlert := false
	for _, f := range findings {
		switch f.Severity {
		case SeverityAlert:
			hasAlert = true
			alertColor.Fprintf(w, "[ALERT] %s\n", f.Message)
		default:
			warnColor.Fprintf(w, "[WARN] %s\n", f.Message)
		}
	}
	if hasAlert {
		alertColor.Fprintln(w, "*** Default credentials detected! Change them immediately! ***")
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
