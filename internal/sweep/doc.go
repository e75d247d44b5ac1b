// Package sweep holds the data-cleaning pipeline behind the web UI.
//
// A file moves through six stages, each usable on its own:
//
//  1. [Ingest] reads an upload (CSV or XLSX, optionally compressed) into a [Table].
//  2. [Inspect] reports size, row and column counts and a short preview.
//  3. [Apply] runs a cleaning [Action]: [RemoveDuplicates] or [FillMissingNumeric].
//  4. [Select] projects the table onto the chosen columns.
//  5. [Visualize] derives a bar chart of the first two numeric columns.
//  6. [ExportTable] writes the table as CSV or XLSX with a derived filename.
//
// [Process] chains the stages for one file and [ProcessAll] for many.
//
// # Formats
//
// Formats are registered at init time using [Register]; a [FormatDefinition]
// pairs an extension and MIME type with a decoder and an encoder. A
// compression suffix (.gz, .bz2, .xz, .zst) is peeled before the format is
// resolved, so "sales.csv.zst" is read as CSV.
//
// # Errors
//
// Every stage fails with an [*Error] whose [ErrorKind] says what went wrong.
// None are fatal to a session. [MapError] turns any error into a
// [UserMessage] with a support code.
package sweep
