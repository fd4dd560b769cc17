// Package telemetry centralises observability for the binaries in cmd/.
//
// It configures structured logging through slog (level and format from
// LOG_LEVEL/LOG_FORMAT or explicit flags) and carries loggers through
// contexts. Library packages under pkg/ stay silent and return errors;
// only entry points wire telemetry.
package telemetry
