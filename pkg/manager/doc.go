/*
Package manager hosts the long-lived owner of the cluster-state engine.

The Manager wires the merge engine to its surroundings: it forwards
incoming stats reports and cluster maps, drives the periodic delta commit
tick, checkpoints the aggregate to the BoltDB store, refreshes the
aggregate Prometheus gauges, and publishes lifecycle events on the broker.
All merge semantics live in pkg/clusterstate; the manager only schedules.
*/
package manager
