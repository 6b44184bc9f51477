// Package server is the HTTP listener of the http and mcp add-ins.
//
// Every inbound request is classified into exactly one flow:
//
//   - OPTIONS on any path: CORS preflight, 204
//   - GET /sse: opens an SSE session and streams it
//   - POST /message: forwarded to the host as MCP_MESSAGE, 202
//   - GET /: static probe
//   - anything else: a generic request, parked until the host answers it
//
// A generic request gets an id from a per-server counter, is registered in
// the pending registry, and is delivered to the host through the event
// bridge. The handler then waits for SendResponse or for the response
// timeout, whichever comes first. Every response carries the same CORS
// headers, including the error responses the listener synthesizes itself.
//
// Host-facing operations (Start, Stop, SendResponse, SSESend, SSEClose) are
// synchronous and safe for concurrent use.
package server
