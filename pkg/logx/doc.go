// Package logx provides the process-wide structured logging kit.
//
// It wraps zerolog behind a small Logger value type that stays live across
// configuration reloads: the Service owns the sink fanout (console, file,
// optional rate-limited chat-room sink) and Apply() swaps it atomically
// without invalidating loggers already handed out.
package logx
