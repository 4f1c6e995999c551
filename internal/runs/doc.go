// Package runs records pipeline run history in SQLite: one row per
// conversion or publish attempt, updated when the run reaches a terminal
// state. The history backs the `runs` CLI commands.
package runs
