package config

import (
	"fmt"
	"regexp"
	"strings"
)

// SensitivePattern is a pattern that suggests a credential was written
// into the config file.
type SensitivePattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

var sensitivePatterns = []SensitivePattern{
	{
		Name:        "GitHub Token",
		Pattern:     regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`),
		Description: "GitHub token detected",
	},
	{
		Name:        "Fine-grained GitHub Token",
		Pattern:     regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
		Description: "fine-grained GitHub token detected",
	},
	{
		Name:        "Token Assignment",
		Pattern:     regexp.MustCompile(`(?i)^\s*(github_)?token\s*=\s*['"][A-Za-z0-9_-]{20,}['"]`),
		Description: "hardcoded token assignment detected",
	},
}

// SensitiveDataFinding is one detected credential.
type SensitiveDataFinding struct {
	PatternName string
	Description string
	Line        int
	Preview     string // redacted
}

// DetectSensitiveData scans config content for hardcoded credentials. Each
// line is reported at most once.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding
	for lineNum, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for _, pattern := range sensitivePatterns {
			if pattern.Pattern.MatchString(line) {
				findings = append(findings, SensitiveDataFinding{
					PatternName: pattern.Name,
					Description: pattern.Description,
					Line:        lineNum + 1,
					Preview:     redactSensitiveValue(line),
				})
				break
			}
		}
	}
	return findings
}

// redactSensitiveValue keeps the key of an assignment and hides the value.
func redactSensitiveValue(line string) string {
	eqIdx := strings.Index(line, "=")
	if eqIdx == -1 {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 8 {
			return trimmed[:4] + "... [REDACTED]"
		}
		return "[REDACTED]"
	}
	return strings.TrimSpace(line[:eqIdx]) + " = [REDACTED]"
}

// FormatSensitiveDataWarning formats findings as a warning for the console.
func FormatSensitiveDataWarning(path string, findings []SensitiveDataFinding) string {
	if len(findings) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s contains credentials:\n", path)
	for _, f := range findings {
		fmt.Fprintf(&sb, "  line %d: %s (%s)\n", f.Line, f.Description, f.Preview)
	}
	fmt.Fprintf(&sb, "Set %s in the environment instead.", EnvGitHubToken)
	return sb.String()
}
