// Package importer provides the business logic for communal payment imports.
//
// An import turns a CSV or XLSX file into persisted communal payments. The
// package has no transport or database dependencies: storage and
// notifications are reached through the [Store] and [Notifier] interfaces,
// so the same pipeline serves the HTTP API, the CLI and the tests.
//
// # Row Layout
//
// Every data row has exactly eight positional columns:
//
//	0 ext_number      free text
//	1 date            DD-MM-YYYY or a native spreadsheet date
//	2 building        free text (informational)
//	3 apartment       free text (informational)
//	4 account_number  must match an existing apartment
//	5 email           must match an existing payer
//	6 description     free text
//	7 price           decimal, comma or dot separator
//
// Line 1 is a header and is always skipped.
//
// # Pipeline
//
// [Pipeline.Run] executes one import:
//
//  1. Resolve the configured default currency (fatal if missing)
//  2. Detect the file format and read raw rows (a failure ends the run
//     with a single file-level error)
//  3. Parse every row, collecting row-level errors without aborting
//  4. Upsert all valid payments in one transaction
//  5. Notify each payer and every lodger of the payment's apartment
//
// # Error Handling
//
// Row-level and file-level problems are reported as [*ImportError] values in
// [Result.Errors]. Use errors.Is with [ErrImportPayment], [ErrParseFile] and
// [ErrFileType] to classify them. Fatal problems (missing currency, storage
// failures) are returned as ordinary Go errors. [MapError] converts any of
// them into a user-facing [UserMessage] with a support code.
package importer
