// Package motor abstracts one LEGO tacho motor and the directory scan
// that discovers them. Two implementations exist behind a build tag:
// the sysfs-backed motor used on an actual EV3 brick, and a simulated
// motor (build tag virtual_motors) used for host-side development.
package motor

import (
	"fmt"
	"os"
	"path/filepath"
)

// Motor drives one physical or simulated tacho motor. Implementations
// are expected to fail individual calls with a typed error rather than
// panic; the node layer decides whether an error warrants a registry
// Rescan.
type Motor interface {
	// Name is the stable identifier derived from the device's wired
	// address, e.g. "motor_outA".
	Name() string

	// GetPosition reads the current encoder position in degrees.
	GetPosition() (int32, error)

	// SetDutyCycle clamps dutyCycle to [-100, 100] and applies it.
	SetDutyCycle(dutyCycle int32) error

	// Reset stops the motor and re-arms direct duty-cycle control.
	Reset() error

	// Good reports whether the underlying device is still present.
	// A motor that stops being Good is dropped on the next Rescan.
	Good() bool
}

// Factory probes deviceDir and, if it names a usable motor device,
// constructs a Motor for it. A non-nil error means deviceDir is not a
// motor (or is not currently readable) and should be skipped.
type Factory func(deviceDir string) (Motor, error)

// Registry is the live set of discovered motors. It is mutated only by
// Rescan; Find and Each are read-only and safe to call between
// Rescans.
type Registry struct {
	root   string
	build  Factory
	motors map[string]Motor
}

// NewRegistry creates an empty registry rooted at root. Call Rescan at
// least once before Find/Each return anything useful.
func NewRegistry(root string, build Factory) *Registry {
	return &Registry{root: root, build: build, motors: make(map[string]Motor)}
}

// Find looks up a previously discovered motor by name.
func (r *Registry) Find(name string) (Motor, bool) {
	m, ok := r.motors[name]
	return m, ok
}

// Each calls fn once per currently known motor, in no particular order.
func (r *Registry) Each(fn func(Motor)) {
	for _, m := range r.motors {
		fn(m)
	}
}

// Len reports how many motors are currently known.
func (r *Registry) Len() int {
	return len(r.motors)
}

// Rescan drops motors that are no longer Good, then walks root for new
// device directories. A device directory that fails to probe is
// skipped, not fatal: a single unplugged or half-initialized motor
// must never take down discovery of the rest. If root itself cannot be
// read, the registry is emptied and the error is returned so the
// caller can log it; the node continues running with zero motors
// until a later Rescan succeeds.
func (r *Registry) Rescan() error {
	for name, m := range r.motors {
		if !m.Good() {
			delete(r.motors, name)
		}
	}

	entries, err := os.ReadDir(r.root)
	if err != nil {
		r.motors = make(map[string]Motor)
		return fmt.Errorf("motor: rescan %s: %w", r.root, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(r.root, e.Name())
		m, err := r.build(dir)
		if err != nil {
			continue
		}
		if _, exists := r.motors[m.Name()]; exists {
			continue
		}
		if err := m.Reset(); err != nil {
			continue
		}
		r.motors[m.Name()] = m
	}
	return nil
}

func clampDutyCycle(v int32) int32 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}
