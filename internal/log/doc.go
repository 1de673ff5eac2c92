// Package log provides a slog.Handler wrapper that keeps crawl logs
// readable.
//
// The archive addresses everything by 36-character GUIDs, and raw GUID
// pairs drown out the rest of a log line. The handler abbreviates
// GUID-shaped attribute values to their first eight characters, the same
// convention the output directory layout uses for instance folders.
package log
