// Package runlog keeps a history of simulation runs: the seed read from Home
// Assistant, the final state, which series were written back and the error,
// if any. Stores exist for plain JSONL files, size-rotated JSONL files and
// SQLite.
package runlog
