// Package poller implements the poll-aggregate-broadcast loop.
//
// The main components are:
//
//   - [Client]: fetches one endpoint with a timeout, turning every failure into data
//   - [FanOutAggregator]: fetches all endpoints concurrently into an ordered snapshot
//   - [Scheduler]: one polling loop per subscribed viewer connection
//   - [Hub]: alternative shared mode, one polling loop fanned out to every viewer
//   - [EndpointInfo]: configuration for an endpoint to fetch
//
// Users of the monitor library should not need to interact with this
// package directly. Configuration is done through the root package.
package poller
