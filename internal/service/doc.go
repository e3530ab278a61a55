// Package service implements the application logic of the forcegraph server.
//
// # Layout Service
//
// LayoutService owns the layout engine and drives it from a single frame
// loop goroutine. The engine is not safe for concurrent use, so every
// request from the HTTP handlers (ingest, reload, reconfigure, camera
// moves, snapshots) is queued as a command and executed between frames.
//
// When a layout cools down its final positions are saved as a snapshot, and
// every ingestion persists the payload so a restarted server resumes with
// the same graph.
//
// # Event System
//
// The service publishes events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE): per-frame node positions,
// tooltip changes, ingestion, cooldown, snapshot and error notifications.
package service
