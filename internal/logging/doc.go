// Package logging provides file-based structured logging with rotation for ds.
// Logs are written as JSON lines to ~/.ds/logs/ds.log; --debug lowers the
// level for a single run and tees the stream to stderr.
//
// The MCP server never writes logs to stdout, which carries the JSON-RPC stream.
package logging
