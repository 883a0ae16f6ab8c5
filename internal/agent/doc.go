// Package agent implements the tool-calling conversation loop and its
// projection into the public event stream.
package agent

// Compile-time interface compliance checks.
var _ Tool = (*SearchDocuments)(nil)
var _ Tool = (*ListDocuments)(nil)
