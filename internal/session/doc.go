// Package session binds one widget tree to one renderer per client.
//
// Ownership boundary:
// - client environment, redirect, cookie and title state seen by the renderer
// - serialized request handling: capability probe, ack, input values, signal
// - the session registry with idle expiry and a size cap
//
// HTTP parsing and transport belong to package server.
package session
