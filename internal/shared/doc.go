// Package shared holds helpers used across the pipeline packages.
//
// The testutil subpackage provides a capturing slog handler and raw sales
// fixtures for package tests.
package shared
