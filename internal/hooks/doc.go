// Package hooks decides which agent shell commands are routed through
// output compression.
//
// The Gate combines the processors' hook patterns with a fixed exclusion
// list. Exclusions always win: pipelines, editors, remote shells,
// redirections, privilege escalation and inline environment prefixes are
// never wrapped because their output either is not captured verbatim or is
// interactive.
//
// ParseToolInput reads the PreToolUse payload an agent sends on stdin.
package hooks
