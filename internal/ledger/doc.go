// Package ledger persists accepted compressions in a local SQLite database
// and answers the aggregate queries used for reporting.
//
// Every accepted compression appends one row to the savings table and, in
// the same transaction, adds its sizes to the session's aggregate row.
// Lifetime figures are summed from session rows on read.
//
// The ledger never gets in the way of the output it measures: an unusable
// database file is deleted and recreated on Open, and write failures are
// logged and dropped.
package ledger
