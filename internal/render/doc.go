// Package render owns per-session synchronization between the server-side UI
// tree and the browser.
//
// Ownership boundary:
// - dirty tracking and the ordered change collection loop
// - phased (visible vs off-screen) delivery
// - stateless handler learning
// - the update acknowledgment window
// - response classification and assembly
//
// The UI tree (package node), page templates (package page) and transport
// (package server) are collaborators and are never reached into directly.
package render
