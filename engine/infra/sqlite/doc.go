// Package sqlite persists the spec library catalog with modernc.org/sqlite.
//
// Schema changes ship as embedded goose migrations and are applied whenever a
// store is opened.
package sqlite
