// Package node wires the wire codec, event loop, transport, source
// identity, and motor registry into the two process personalities: a
// server node that owns motors and broadcasts their state, and a
// client node that transcodes the wire protocol to line-delimited
// JSON for external tooling.
package node

import (
	"fmt"
	"os"
	"time"

	"ev3broker/eventloop"
	"ev3broker/logger"
	"ev3broker/motor"
	"ev3broker/sourceid"
	"ev3broker/transport"
	"ev3broker/wire"
)

const (
	positionBroadcastInterval = 10 * time.Millisecond
	heartbeatInterval         = 250 * time.Millisecond
	rescanInterval            = 1 * time.Second

	// quarantineHeartbeats is how many heartbeat ticks a server waits,
	// listening for a name clash, before promoting itself to the
	// broadcasting state.
	quarantineHeartbeats = 4
)

// Server is the robot-side personality: it owns a MotorRegistry,
// broadcasts PositionSensor and Heartbeat messages, and executes
// incoming SetDutyCycle/Reset commands.
type Server struct {
	wire.BaseListener

	id     sourceid.SourceId
	sock   *transport.Socket
	port   uint16
	enc    *wire.Encoder
	dec    wire.Decoder
	motors *motor.Registry
	log    *logger.Logger

	broadcastEnabled bool
	heartbeatCount   int
	conflict         bool
	clashName        string
}

// NewServer builds a Server bound to id, communicating over sock
// (already bound to 0.0.0.0:port), actuating the motors in registry.
func NewServer(id sourceid.SourceId, sock *transport.Socket, port uint16, motors *motor.Registry, log *logger.Logger) *Server {
	s := &Server{id: id, sock: sock, port: port, motors: motors, log: log}
	s.enc = wire.NewEncoder(s.send, id.Name(), id.Hash())
	return s
}

// Register adds the server's socket readiness handler and its three
// timers to loop. Call loop.Run() afterward to start serving.
func (s *Server) Register(loop *eventloop.Loop) {
	loop.RegisterSource(s.sock, s.onSocketReadable)
	loop.RegisterTimer(positionBroadcastInterval, s.onPositionTimer)
	loop.RegisterTimer(heartbeatInterval, s.onHeartbeatTimer)
	loop.RegisterTimer(rescanInterval, s.onRescanTimer)
}

func (s *Server) send(buf []byte) bool {
	ok, err := s.sock.Send(transport.LimitedBroadcast(s.port), buf)
	if err != nil {
		s.log.Log("server", logger.ERROR, fmt.Sprintf("broadcast send: %v", err))
		return false
	}
	return ok
}

func (s *Server) rescan() {
	if err := s.motors.Rescan(); err != nil {
		s.log.Log("server", logger.WARNING, fmt.Sprintf("motor rescan: %v", err))
	}
}

func (s *Server) onSocketReadable() bool {
	_, msg, ok, err := s.sock.Recv()
	if err != nil {
		s.log.Log("server", logger.ERROR, fmt.Sprintf("recv: %v", err))
		return false
	}
	if !ok {
		return false
	}
	s.dec.Parse(s, msg)
	return true
}

func (s *Server) onPositionTimer() bool {
	if !s.broadcastEnabled {
		return true
	}

	ioErr := false
	s.motors.Each(func(m motor.Motor) {
		pos, err := m.GetPosition()
		if err != nil {
			ioErr = true
			return
		}
		s.enc.WritePositionSensor(m.Name(), pos)
	})
	s.enc.Flush()

	if ioErr {
		s.rescan()
	}
	return true
}

func (s *Server) onHeartbeatTimer() bool {
	s.enc.WriteHeartbeat()
	s.enc.Flush()
	s.heartbeatCount++

	if s.conflict && !s.broadcastEnabled {
		s.log.LogConflict("server", fmt.Sprintf("source name %q claimed by another process, aborting", s.clashName))
		os.Exit(1)
	}

	if !s.broadcastEnabled && s.heartbeatCount > quarantineHeartbeats {
		s.broadcastEnabled = true
		s.log.Log("server", logger.INFO, "quarantine complete, broadcasting enabled")
	}
	return true
}

func (s *Server) onRescanTimer() bool {
	s.rescan()
	return true
}

// Filter implements wire.Listener: a server drops any datagram
// originating from its own identity, which is how it avoids reacting
// to its own broadcasts echoed back on the same socket.
func (s *Server) Filter(h wire.Header) bool {
	return !h.SameSource(s.id.Name(), s.id.Hash())
}

// OnHeartbeat implements wire.Listener. A heartbeat claiming this
// server's name but a different hash is a conflict; during
// quarantine that aborts the process on the next heartbeat tick.
func (s *Server) OnHeartbeat(h wire.Header) {
	if h.SourceName == s.id.Name() && h.SourceHash != s.id.Hash() {
		if !s.conflict {
			s.log.LogConflict("server", fmt.Sprintf("heartbeat from hash %q claims our name %q", h.SourceHash, h.SourceName))
		}
		s.conflict = true
		s.clashName = h.SourceName
	}
}

// OnSetDutyCycle implements wire.Listener: locate the named motor and
// apply duty_cycle. A missing motor is silently ignored, matching
// UDP's own delivery semantics; a motor I/O error triggers a rescan
// instead of propagating.
func (s *Server) OnSetDutyCycle(h wire.Header, deviceName string, dutyCycle int32) {
	m, ok := s.motors.Find(deviceName)
	if !ok {
		return
	}
	if err := m.SetDutyCycle(dutyCycle); err != nil {
		s.log.Log("server", logger.WARNING, fmt.Sprintf("set duty cycle on %s: %v", deviceName, err))
		s.rescan()
	}
}

// OnReset implements wire.Listener: reset every motor, giving each one
// a chance even if an earlier one fails.
func (s *Server) OnReset(h wire.Header) {
	s.motors.Each(func(m motor.Motor) {
		if err := m.Reset(); err != nil {
			s.log.Log("server", logger.WARNING, fmt.Sprintf("reset %s: %v", m.Name(), err))
		}
	})
}
