// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a concurrency-safe slog capture handler
// and fixture writers for sample information workbooks and instrument
// dumps:
//
//	logger, logs := testutil.NewTestLogger(t)
//	testutil.WriteSampleBook(t, path, "blank.txt", rows)
//	testutil.AssertLogged(t, logs, slog.LevelInfo, "sample processed")
//
// Nothing here may import domain packages.
package shared
