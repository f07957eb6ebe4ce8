/*
Package types defines the shared data model for Stratum: placement-group
identifiers and statistics, per-node summaries with heartbeat latency
windows, node report batches, and cluster map snapshots.

The package is intentionally dependency-free. Recency of a PG's stats is
defined by its VersionPair (reported map epoch, then report sequence), not
by arrival time; every consumer that merges stats must compare version
pairs rather than timestamps.
*/
package types
