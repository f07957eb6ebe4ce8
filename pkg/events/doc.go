/*
Package events provides an in-process publish/subscribe broker for
cluster-state lifecycle events: cluster maps applied, deltas committed,
node reports received, checkpoints saved.

Delivery is best-effort: each subscriber gets a buffered channel and slow
subscribers have events skipped rather than blocking the broker. Events are
assigned a UUID and timestamp at publish time if the caller left them unset.
*/
package events
