// Package logging builds and applies the process logging configuration.
//
// The Provider assembles a declarative LoggingConfig (formatters, filters,
// handlers, per-logger overrides and the root logger) from a few options and
// repeated AddLoggers calls. Configure turns that configuration into a
// Dispatcher that hands out zerolog loggers routed to console, rotating file
// and callback sinks by dotted logger name.
//
// Every handler carries the channel filter, which tags records with a short
// alias of the logger name so formatters can print it.
package logging
