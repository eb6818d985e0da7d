//go:build !virtual_motors

package motor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// tachoMotor drives one /sys/class/tacho-motor/<device> entry by
// reading and writing its sysfs attribute files directly. There is no
// persistent fd cache (unlike the C++ original, which keeps O_WRONLY/
// O_RDONLY fds open for the motor's lifetime): os.ReadFile/os.WriteFile
// is simpler and sysfs attribute files are cheap to reopen, and a
// closed fd can never hold the registry onto a device that has since
// been unplugged.
type tachoMotor struct {
	dir  string
	name string
}

// NewTachoMotor probes dir as a /sys/class/tacho-motor device
// directory. It fails if dir does not expose both "address" and
// "state", the two attributes every tacho-motor driver is required to
// publish.
func NewTachoMotor(dir string) (Motor, error) {
	addr, err := readTrim(filepath.Join(dir, "address"))
	if err != nil {
		return nil, fmt.Errorf("motor: %s: not a tacho-motor device: %w", dir, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state")); err != nil {
		return nil, fmt.Errorf("motor: %s: not a tacho-motor device: %w", dir, err)
	}
	return &tachoMotor{dir: dir, name: "motor_" + addr}, nil
}

func (m *tachoMotor) Name() string { return m.name }

func (m *tachoMotor) Good() bool {
	_, err := os.Stat(filepath.Join(m.dir, "state"))
	return err == nil
}

func (m *tachoMotor) GetPosition() (int32, error) {
	s, err := readTrim(filepath.Join(m.dir, "position"))
	if err != nil {
		return 0, fmt.Errorf("motor: %s: read position: %w", m.name, err)
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("motor: %s: parse position %q: %w", m.name, s, err)
	}
	return int32(v), nil
}

func (m *tachoMotor) SetDutyCycle(dutyCycle int32) error {
	clamped := clampDutyCycle(dutyCycle)
	if err := writeAttr(filepath.Join(m.dir, "duty_cycle_sp"), strconv.Itoa(int(clamped))); err != nil {
		return fmt.Errorf("motor: %s: set duty cycle: %w", m.name, err)
	}
	return nil
}

// DefaultFactory is the Factory the current build selects: sysfs-backed
// tachoMotor unless compiled with the virtual_motors build tag.
func DefaultFactory(dir string) (Motor, error) {
	return NewTachoMotor(dir)
}

func (m *tachoMotor) Reset() error {
	if err := writeAttr(filepath.Join(m.dir, "command"), "reset"); err != nil {
		return fmt.Errorf("motor: %s: reset: %w", m.name, err)
	}
	if err := writeAttr(filepath.Join(m.dir, "command"), "run-direct"); err != nil {
		return fmt.Errorf("motor: %s: run-direct: %w", m.name, err)
	}
	return nil
}

