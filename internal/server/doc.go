// Package server implements the MCP (Model Context Protocol) server for sickle cell
// classification.
//
// The server exposes the cells classifier and a few supporting image tools through
// JSON-RPC 2.0, so an MCP client can classify a blood smear, inspect the pipeline
// stages and zoom into individual cells.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_crop: Extract rectangular region
//   - image_sample_color: Get color at pixel
//
// Cell Classification:
//   - cell_classify: Measure and classify cells, report the sickle/normal ratio
//   - cell_stages: Render an intermediate pipeline stage
//   - cell_crop: Extract one measured cell
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// Classification never modifies a cached image. image_load with reload set drops
// the cached copy first.
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses with:
//   - code: -32601 unknown method, -32602 invalid arguments or unknown tool,
//     -32000 tool execution failure
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A classification that finds no normal cells is not an error: cell_classify
// returns status "no_normal_cells" and a null ratio.
//
// # Usage
//
//	srv := server.New(server.Options{Logger: &logger})
//	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
