// Package widget is a small server-side UI tree rendered through package
// render.
//
// Ownership boundary:
// - widget state, change flags and the mutation records they produce
// - full HTML serialization of a subtree
// - click handlers and which of them may be learned client-side
// - the rollback journal used while a handler is learned
//
// Scheduling of when records are collected and sent belongs to render.
package widget
