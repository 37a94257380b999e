// Package app wires the dashboard together: configuration, logging,
// telemetry, services, the refresh scheduler and the HTTP server.
//
// # Startup
//
//	1. Load configuration (defaults, YAML file, .env, environment)
//	2. Initialize the JSON logger and OpenTelemetry providers
//	3. Create the dashboard and health services
//	4. Register the cron refresh, if configured
//	5. Build the chi router and the HTTP server
//
// # Shutdown
//
// Run blocks until SIGINT or SIGTERM, or until the server fails. It then
// stops the scheduler, drains in-flight requests within the configured
// shutdown timeout and flushes telemetry. Errors are returned to the caller;
// the package never exits the process.
package app
