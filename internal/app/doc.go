// Package app wires the dashboard together and runs the HTTP server.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, config.yaml and CARDASH_* variables
//  2. Initialize logging and OpenTelemetry
//  3. Create the dataset cache, the dashboard service and the WebSocket hub
//  4. Set up the chi router, middleware and handlers
//  5. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM. Connected WebSocket clients are told
// the server is going away, in-flight requests are drained and the
// telemetry providers are flushed.
//
// Initialization errors are returned to the caller. The package never calls
// os.Exit.
package app
