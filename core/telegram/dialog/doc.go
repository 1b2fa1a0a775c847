// Package dialog provides a timeout-aware conversation engine for Telegram
// bots. A Dialog declares named states and per-kind transitions; the Engine
// keeps at most one active session per user and offers it first pick of
// incoming updates.
package dialog
