/*
Package log provides structured logging for Stratum built on zerolog.

Init configures the global logger once at process startup (level, JSON or
console output); components derive child loggers with WithComponent so every
line carries its origin. Before Init the logger is a no-op, which keeps unit
tests quiet without any setup.
*/
package log
