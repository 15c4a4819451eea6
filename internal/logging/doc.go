// Package logging constructs the application's slog loggers and provides
// attribute helpers shared by every component.
package logging
