// Package gateway hosts the chat router and operator endpoints over HTTP.
//
// Routes:
//
//	POST /api/messages   chat message in, reply (and optional document) out
//	POST /api/import     multipart spreadsheet upload
//	GET  /api/export     spreadsheet download
//	GET  /api/status     record count and database health
//	GET  /metrics        Prometheus exposition
//
// When server.api_token is set every /api route requires a bearer token.
// A file lock in the data directory keeps a second gateway from starting
// against the same database.
package gateway
