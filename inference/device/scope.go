package device

import "sync"

// The ambient device is process-wide state consulted when a model is
// constructed without an explicit device. It is advisory pinning at
// construction time only: instances built inside a scope stay on that device
// for life, and nothing about an existing instance changes when the scope
// exits.

var (
	ambientMu sync.Mutex
	ambient   = CPU
)

// Active returns the current ambient device.
func Active() Device {
	ambientMu.Lock()
	defer ambientMu.Unlock()
	return ambient
}

// Activate makes d the ambient device and returns a restore function that
// reinstates whatever was ambient before. Callers must invoke restore on
// every exit path, normally via defer.
func Activate(d Device) (restore func()) {
	ambientMu.Lock()
	prev := ambient
	ambient = d
	ambientMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ambientMu.Lock()
			ambient = prev
			ambientMu.Unlock()
		})
	}
}

// With runs fn with d as the ambient device, restoring the prior ambient
// device on any exit path, including a panic inside fn.
func With(d Device, fn func() error) error {
	defer Activate(d)()
	return fn()
}
