// Package memprobe reports current process memory usage so the pipeline
// can decide when to spill the active batch to disk.
package memprobe

import "runtime"

// Probe reports the process's current memory usage in bytes. Injected so
// tests can force or suppress checkpoint triggers deterministically.
type Probe interface {
	CurrentUsage() uint64
}

// RuntimeProbe reads live heap usage from the Go runtime.
//
// ReadMemStats briefly stops the world, which is why the pipeline samples
// once per directory rather than once per file. In exchange, the budget is
// soft: peak usage can overshoot by roughly one directory's worth of
// pending records plus sampling granularity. This is expected behavior.
type RuntimeProbe struct{}

// CurrentUsage returns the bytes of allocated heap objects.
func (RuntimeProbe) CurrentUsage() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// Fixed is a probe that always reports the same usage. Test helper.
type Fixed uint64

// CurrentUsage returns the fixed value.
func (f Fixed) CurrentUsage() uint64 {
	return uint64(f)
}
