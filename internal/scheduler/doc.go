// Package scheduler refreshes the cached default dataset on a cron schedule,
// so a data file or remote table that changes in place is picked up without
// restarting the server.
package scheduler
