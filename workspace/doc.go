// Package workspace confines every tool operation to a single directory
// tree and implements the operations themselves: guarded path resolution,
// size-limited file I/O, regex search, git reflection, and the secret
// scanner that gates commits.
//
// A Workspace is created once per agent run from an absolute root. Every
// path a caller supplies is resolved and validated against that root after
// canonicalization; raw string comparison is never used, so traversal via
// "..", symlinks, or redundant separators cannot escape.
//
// Operations fail with *ToolError carrying a machine-readable code, a
// human-readable message, recovery suggestions, and context. Callers feed
// these straight back to the model.
package workspace
