/*
Package api provides the Stratum admin HTTP surface.

The AdminServer exposes /health and /ready JSON endpoints, the Prometheus
/metrics endpoint, and POST /admin/command for control-plane diagnostic
commands. It doubles as the command registry: the merge engine registers
its commands at startup and only registered prefixes are dispatched, so
the engine's fatal unknown-command path stays unreachable from here.
*/
package api
