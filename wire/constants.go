// Package wire implements the binary datagram protocol spoken between
// broker nodes: a fixed-size header, a small set of message variants, and
// the streaming encoder/decoder that frame them onto a single UDP
// datagram per flush.
package wire

// Sync is the magic word that opens every outbound datagram. It is
// intentionally asymmetric (not a repeating byte pattern) so that a
// rotated alignment of it inside a payload can never be mistaken for the
// real sync word during resynchronisation.
const Sync uint32 = 0xCAA29C3A

// Field widths, frozen on the wire. Receivers of any version of this
// protocol must agree on these.
const (
	SourceNameLen = 16
	SourceHashLen = 8
	DeviceNameLen = 16
)

// Message type tags.
const (
	TypePositionSensor byte = 0x01
	TypeSetDutyCycle   byte = 0x02
	TypeHeartbeat      byte = 0x03
	TypeReset          byte = 0xFF
)

// HeaderSize is the encoded size of the per-datagram header: sync(4) +
// source_name(16) + source_hash(8) + sequence(4) + n_messages(1).
const HeaderSize = 4 + SourceNameLen + SourceHashLen + 4 + 1

// Per-message encoded sizes, including the leading type byte.
const (
	positionSensorSize = 1 + DeviceNameLen + 4
	setDutyCycleSize   = 1 + DeviceNameLen + 4
	heartbeatSize      = 1
	resetSize          = 1
)

// MTUBudget is the datagram size ceiling, chosen below the IPv6 minimum
// MTU so a broker never has to worry about fragmentation.
const MTUBudget = 1280

// MaxMessagesPerDatagram is the largest n_messages value the one-byte
// header field can carry.
const MaxMessagesPerDatagram = 255
