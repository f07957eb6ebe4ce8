/*
Package storage persists stats map checkpoints using BoltDB.

The merge engine itself is purely in-memory; the manager checkpoints its
snapshot here periodically and restores it at startup so a restart does not
begin from an empty aggregate. Checkpoints are stored as JSON under a
single key in a single bucket - the last writer wins, there is no history.
*/
package storage
