/*
Package clusterstate implements Stratum's cluster-state aggregation core:
a single authoritative, versioned view of placement-group and storage-node
statistics, built by merging unordered reports from many nodes with
periodic full cluster map snapshots.

# Merge model

The engine owns three structures behind one exclusive lock:

  - StatsMap: the versioned aggregate (per-PG stats, per-node summaries)
  - Incremental: the pending delta, staged between commits
  - the pool existence filter, rebuilt from each ingested cluster map

IngestReport stages report entries after two filters: entries for pools the
latest map no longer has are dropped (an expected race with topology
propagation), and entries whose (reported_epoch, reported_seq) version pair
is not newer than the aggregate's are dropped. The version-pair rule makes
the merge commutative and idempotent with respect to delivery order: a
stale report loses no matter when it arrives.

Commit folds the pending delta into the aggregate and bumps the version by
exactly one; a target-version mismatch is a fatal programming error.
IngestMap rebuilds the pool filter, runs the MapChecker collaborator, and
commits inside a single lock hold so a topology transition is never
observed half-applied.

# Diagnostics

DumpNetworkRanking derives a deterministic per-node-pair heartbeat latency
ranking from the aggregate, served through the dump_node_network admin
command. Front-interface rows with a zero last sample are suppressed; back
rows never are.
*/
package clusterstate
