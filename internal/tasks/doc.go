// Package tasks runs long operations over the favorites list with real-time progress reporting.
//
// # Bulk detail export
//
// [Exporter.BulkExport] fetches the full record of every given movie and writes it to disk in
// one of the formatter's formats, followed by a manifest.json summarising the run:
//   - fetches run on an errgroup limited to [ExportOpts.Workers] goroutines (1 to 10)
//   - requests are paced by a shared [rate.Limiter]
//   - a failed movie is recorded in the manifest and does not stop the others
//   - cancelling ctx stops scheduling new movies and returns ctx's error
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends never block: when the
// channel is full the update is dropped.
package tasks
