//go:build virtual_motors

package motor

import (
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"
)

// Parameters of the simulated motor's first-order response: tau is the
// time constant of the exponential approach to the target velocity,
// maxRPM the duty-cycle-100 steady-state speed.
const (
	motorTau    = 100 * time.Millisecond
	motorMaxRPM = 240.0
)

// virtualMotor stands in for a tachoMotor on a host with no sysfs
// tacho-motor driver. It still probes dir for an "address" file so a
// test fixture built for the sysfs layout works unchanged under this
// build tag; duty cycle and position are simulated in memory instead
// of written to device files.
type virtualMotor struct {
	name string

	mu             sync.Mutex
	x0, v0         float64 // position (revolutions) and velocity (rev/s) at t0
	t0             time.Time
	vTarget        float64 // target velocity, rev/s
	positionOffset float64
}

// DefaultFactory is the Factory the current build selects: this
// build was compiled with the virtual_motors tag, so it is the
// simulated motor rather than the sysfs-backed one.
func DefaultFactory(dir string) (Motor, error) {
	return NewVirtualMotor(dir)
}

// NewVirtualMotor probes dir the same way the sysfs implementation
// does: an "address" file names the device.
func NewVirtualMotor(dir string) (Motor, error) {
	addr, err := readTrim(filepath.Join(dir, "address"))
	if err != nil {
		return nil, fmt.Errorf("motor: %s: not a motor device: %w", dir, err)
	}
	m := &virtualMotor{name: "motor_" + addr, t0: monotonicNow()}
	return m, nil
}

func monotonicNow() time.Time {
	return time.Now()
}

func (m *virtualMotor) Name() string { return m.name }

// Good never goes false for a simulated motor; it has no device file
// to lose.
func (m *virtualMotor) Good() bool { return true }

func (m *virtualMotor) precisePosition(t time.Time) float64 {
	elapsed := t.Sub(m.t0).Seconds()
	tauSeconds := motorTau.Seconds()
	decay := math.Exp(-elapsed / tauSeconds)
	return tauSeconds*(m.v0-decay*(m.v0-m.vTarget)) + m.vTarget*(elapsed-tauSeconds) + m.x0
}

func (m *virtualMotor) preciseVelocity(t time.Time) float64 {
	elapsed := t.Sub(m.t0).Seconds()
	decay := math.Exp(-elapsed / motorTau.Seconds())
	return decay*(m.v0-m.vTarget) + m.vTarget
}

func (m *virtualMotor) GetPosition() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := (m.precisePosition(monotonicNow()) - m.positionOffset) * 360.0
	return int32(pos), nil
}

func (m *virtualMotor) SetDutyCycle(dutyCycle int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := monotonicNow()
	v0 := m.preciseVelocity(now)
	x0 := m.precisePosition(now)
	m.v0, m.x0, m.t0 = v0, x0, now

	clamped := clampDutyCycle(dutyCycle)
	m.vTarget = (float64(clamped) / 100.0) * (motorMaxRPM / 60.0)
	return nil
}

func (m *virtualMotor) Reset() error {
	if err := m.SetDutyCycle(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionOffset = m.precisePosition(monotonicNow())
	return nil
}
