/*
Package metrics defines and registers all Stratum Prometheus metrics.

All collectors are package-level variables registered at init, following
Prometheus client conventions: gauges for instant aggregate state (stats
map version, tracked PG and node counts), counters for ingestion outcomes
(reports ingested, per-entry drops by reason, commits, maps applied,
checkpoints), and a histogram for commit latency. Handler exposes the
standard text exposition endpoint for scraping.
*/
package metrics
