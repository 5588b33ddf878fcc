package secrets

// Rule is one credential pattern.
type Rule struct {
	ID      string
	Pattern string
}

// DefaultRules returns the patterns applied to recorded commands. They
// cover tokens that commonly appear inline in curl, git and CLI
// invocations.
func DefaultRules() []Rule {
	return []Rule{
		{"aws-access-key-id", `\b(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}\b`},
		{"aws-secret-access-key", `(?i)(aws_secret_access_key|aws_secret_key|secret_access_key)\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`},
		{"github-token", `\b(ghp|gho|ghu|ghs)_[A-Za-z0-9]{36}\b`},
		{"github-fine-grained", `\bgithub_pat_[A-Za-z0-9_]{22,}`},
		{"gitlab-token", `\bglpat-[A-Za-z0-9\-]{20,}`},
		{"slack-token", `\bxox[baprs]-[A-Za-z0-9\-]{10,}`},
		{"stripe-key", `\b(sk|pk)_(live|test)_[A-Za-z0-9]{24,}`},
		{"anthropic-api-key", `\bsk-ant-[A-Za-z0-9_\-]{20,}`},
		{"openai-api-key", `\bsk-(proj-)?[A-Za-z0-9_\-]{32,}`},
		{"npm-token", `\bnpm_[A-Za-z0-9]{36}\b`},
		{"google-api-key", `\bAIza[A-Za-z0-9_\-]{35}`},
		{"jwt", `\beyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`},
		{"url-credentials", `(?i)\b[a-z][a-z0-9+.\-]*://[^\s:/@]+:[^\s@]+@`},
		{"bearer-token", `(?i)\bbearer\s+[A-Za-z0-9_\-.=]{16,}`},
		{"basic-auth-flag", `\B(-u|--user)\s+['"]?[^\s:'"]+:[^\s'"]+['"]?`},
		{"generic-secret", `(?i)\b[A-Za-z0-9_]*(password|passwd|secret|token|api_?key)[A-Za-z0-9_]*\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`},
		{"private-key", `-----BEGIN (RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY( BLOCK)?-----`},
	}
}
