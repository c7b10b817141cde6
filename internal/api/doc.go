// Package api exposes the daemon's HTTP control surface and the wire types it
// shares with CLI clients.
//
// The server is a thin REST layer over the daemon: submission, queue
// maintenance, status, and a websocket progress stream per job. Conversion
// helpers translate queue and workflow records into stable camelCase payloads
// so clients never depend on internal struct layout. Handlers stay free of
// business rules; validation and orchestration live in the daemon package.
package api
