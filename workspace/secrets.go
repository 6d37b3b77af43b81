package workspace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxSecretScanSize caps content scanning; larger files are judged by
// filename alone.
const maxSecretScanSize = 100 * 1024

// filenameRule flags a path as sensitive by its (lowercased) name.
type filenameRule struct {
	pattern *regexp.Regexp
	reason  string
}

// contentRule flags a file by what it contains.
type contentRule struct {
	pattern *regexp.Regexp
	reason  string
}

var filenameRules = []filenameRule{
	{regexp.MustCompile(`\.env(\.|$)`), "environment file"},
	{regexp.MustCompile(`\.pem$`), "private key file"},
	{regexp.MustCompile(`id_rsa|id_dsa|id_ecdsa`), "SSH private key"},
	{regexp.MustCompile(`credentials?`), "credentials file"},
	{regexp.MustCompile(`\.aws/`), "AWS configuration"},
	{regexp.MustCompile(`\.ssh/`), "SSH configuration"},
	{regexp.MustCompile(`password\.(txt|yml|yaml|json)$`), "password file"},
	{regexp.MustCompile(`secrets?\.(txt|yml|yaml|json)$`), "secrets file"},
	{regexp.MustCompile(`\.key$`), "key file"},
}

var contentRules = []contentRule{
	{regexp.MustCompile(`(?i)api[_-]?key\s*=\s*["'][^"']+["']`), "API key assignment"},
	{regexp.MustCompile(`(?i)password\s*=\s*["'][^"']+["']`), "password assignment"},
	{regexp.MustCompile(`(?i)token\s*=\s*["'][^"']+["']`), "token assignment"},
	{regexp.MustCompile(`sk_live_[a-zA-Z0-9]+`), "Stripe live key"},
	{regexp.MustCompile(`ghp_[a-zA-Z0-9]+`), "GitHub personal access token"},
}

// ScanDecision is the outcome of scanning a set of commit candidates. All
// violations are collected so the caller can report every offending file
// at once.
type ScanDecision struct {
	Blocked bool
	Reasons []string
}

// SecretScanner checks files about to be committed for sensitive names
// and contents.
type SecretScanner struct {
	root string
}

// NewSecretScanner returns a scanner reading file contents relative to
// the workspace.
func NewSecretScanner(w *Workspace) *SecretScanner {
	return &SecretScanner{root: w.Root()}
}

// Scan inspects every candidate path and aggregates all violations.
func (s *SecretScanner) Scan(paths []string) ScanDecision {
	var reasons []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if reason, hit := s.sensitiveName(p); hit {
			reasons = append(reasons, fmt.Sprintf("%s (%s)", p, reason))
			continue
		}
		if reason, hit := s.sensitiveContent(p); hit {
			reasons = append(reasons, fmt.Sprintf("%s (contains %s)", p, reason))
		}
	}
	return ScanDecision{Blocked: len(reasons) > 0, Reasons: reasons}
}

// sensitiveName matches the lowercased path against the filename rules.
func (s *SecretScanner) sensitiveName(path string) (string, bool) {
	lower := strings.ToLower(filepath.ToSlash(path))
	for _, rule := range filenameRules {
		if rule.pattern.MatchString(lower) {
			return rule.reason, true
		}
	}
	return "", false
}

// sensitiveContent scans the file body for secret-shaped values. Missing,
// oversized, and binary files pass: the filename rules remain the only
// line of defense for those.
func (s *SecretScanner) sensitiveContent(path string) (string, bool) {
	full := filepath.Join(s.root, path)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() || info.Size() > maxSecretScanSize {
		return "", false
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(data, 0) {
		return "", false
	}

	for _, rule := range contentRules {
		if rule.pattern.Match(data) {
			return rule.reason, true
		}
	}
	return "", false
}
