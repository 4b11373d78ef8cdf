package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// EmailNotifications sends lifecycle mails over SMTP instead of logging them
	EmailNotifications = "EMAIL_NOTIFICATIONS"
	// SeedDemoUsers creates an admin, an agent and a holder at startup
	SeedDemoUsers = "SEED_DEMO_USERS"
)

// Flags reads FLAG_<NAME>=true/1/yes/on (case-insensitive) from a lookup func
type Flags struct {
	lookup func(string) string
}

// FromEnv reads flags from the process environment
func FromEnv() Flags {
	return Flags{lookup: os.Getenv}
}

// FromMap reads flags from a fixed map keyed by FLAG_<NAME>
func FromMap(m map[string]string) Flags {
	return Flags{lookup: func(k string) string { return m[k] }}
}

// Enabled reports whether the named flag is on
func (f Flags) Enabled(name string) bool {
	switch strings.ToLower(strings.TrimSpace(f.lookup("FLAG_" + strings.ToUpper(name)))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Enabled reports whether a flag is on in the process environment
func Enabled(name string) bool {
	return FromEnv().Enabled(name)
}
