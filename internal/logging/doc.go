// Package logging provides structured logging for repovault built on Zap.
//
// It exposes a small Config, a Logger wrapper with child-logger helpers, and
// a TestLogger backed by zaptest/observer for assertions in tests.
package logging
