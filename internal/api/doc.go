// Package api serves the bot's read-only status surface.
//
// Routes (all under /api/v1):
//
//	GET /health   component health; 503 when any check fails
//	GET /stats    live statistics snapshot
//	GET /runs     newest task-run journal entries (?limit=, default 20, max 500)
//	GET /ws       WebSocket event stream (?channels=task.run,stats; default all)
//
// The server follows the same lifecycle as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Nothing here can drive the device; the control loop stays the only writer.
package api
