/*
Package config loads the Stratum manager configuration from YAML,
layering file contents over built-in defaults. Intervals are expressed
in whole seconds; latency thresholds in microseconds, matching the unit
of stored heartbeat samples.
*/
package config
