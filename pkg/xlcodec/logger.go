package xlcodec

// Logger receives the codec's progress and diagnostics. A Codec may be used
// from several goroutines, so implementations must tolerate concurrent calls.
type Logger interface {
	// Verbose reports each part as it is read or written, with its size.
	Verbose(format string, args ...interface{})

	// Info reports parts the codec dropped and defined names that point at
	// missing sheets.
	Info(format string, args ...interface{})

	// Error reports a failure just before it is returned to the caller.
	Error(format string, args ...interface{})
}
