// Package secrets masks credentials in shell commands before they are
// written to the savings ledger.
//
// Rules are plain RE2 patterns. Overlapping matches are merged into a
// single replacement so the masked text never leaks a fragment.
package secrets
