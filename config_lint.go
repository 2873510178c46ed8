package goFactor

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one advisory finding. Lint findings never block Build.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// BySeverity returns findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins findings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	found := r.BySeverity(min)
	if len(found) == 0 {
		return nil
	}
	parts := make([]string, len(found))
	for i, w := range found {
		parts[i] = fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message)
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that are valid but risky.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Email.TokenLifetime > time.Hour {
		add("email_lifetime_long", LintWarn, "email tokens stay valid for more than an hour")
	}
	if c.Email.LinkBase != "" && !strings.HasPrefix(c.Email.LinkBase, "https://") {
		add("email_link_insecure", LintHigh, "challenge links are not https")
	}
	if strings.Contains(c.Email.LinkBase, "example.invalid") {
		add("email_link_placeholder", LintInfo, "challenge link base is the placeholder host")
	}
	if c.Token.TTL > time.Hour {
		add("token_ttl_long", LintWarn, "service tokens live longer than an hour")
	}
	if c.Token.Leeway > time.Minute {
		add("leeway_large", LintWarn, "token leeway exceeds one minute")
	}
	if c.TOTP.Skew > 1 {
		add("totp_skew_wide", LintWarn, "TOTP accepts more than one adjacent step")
	}
	if strings.EqualFold(c.TOTP.Algorithm, "SHA1") || c.TOTP.Algorithm == "" {
		add("totp_sha1", LintInfo, "TOTP uses SHA1 for authenticator compatibility")
	}
	if c.Password.MemoryKB < 19*1024 {
		add("argon2_memory_low", LintWarn, "argon2id memory below 19 MiB")
	}
	if !c.Limits.Enabled {
		add("rate_limits_disabled", LintHigh, "verification failures are not throttled")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not recorded")
	}
	if c.Store.Driver == "" || c.Store.Driver == "memory" {
		add("store_memory", LintWarn, "identities are kept in process memory")
	}
	return ws
}
