// Package handler implements the HTTP API of the layout server.
//
// LayoutHandler exposes the running layout: the current payload, the engine
// configuration, layout statistics, stored snapshots, and the gaze tooltip.
// Requests are forwarded to service.LayoutService, which executes them on the
// frame loop.
//
// # Routes
//
//	GET    /api/graph            current payload (?format=yaml)
//	POST   /api/graph            replace the payload (JSON or YAML body)
//	POST   /api/reload           fetch {"url": ...} or the configured URL
//	GET    /api/config           engine configuration
//	PUT    /api/config           partial update, re-ingests the payload
//	GET    /api/stats            state, ticks, alpha, counts
//	GET    /api/snapshots        stored snapshot summaries (?limit=N)
//	POST   /api/snapshots        capture the current layout
//	GET    /api/snapshots/{id}   one snapshot (?format=yaml)
//	DELETE /api/snapshots/{id}   remove a snapshot
//	PUT    /api/camera           aim the gaze ray, returns the tooltip
//	GET    /api/tooltip          current tooltip text
//
// The /events stream is served by the hub package.
//
// Errors are returned as JSON with {error, details} and a status code derived
// from the service error. Middleware provides panic recovery, CORS and request
// logging.
package handler
