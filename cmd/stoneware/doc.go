// Package main hosts the stoneware CLI entrypoint and command graph.
//
// Commands are thin drivers over internal/library: they parse arguments,
// call one service operation and render the result as a table (or plain
// tab-separated text when stdout is not a terminal) or as JSON with --json.
// Configuration is resolved once per invocation and the shelf database is
// opened only by commands that need it.
package main
