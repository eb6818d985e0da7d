package wire

import "encoding/binary"

// Listener receives the callbacks fired while parsing one datagram.
// Filter runs before any body callback and may reject the whole datagram;
// the On* methods are called once per message in wire order. Embed
// BaseListener to get no-op defaults and only override what's needed —
// there is no dynamic dispatch across package boundaries, only the
// monomorphic Listener the caller passes to Parse.
type Listener interface {
	Filter(h Header) bool
	OnPositionSensor(h Header, deviceName string, position int32)
	OnSetDutyCycle(h Header, deviceName string, dutyCycle int32)
	OnHeartbeat(h Header)
	OnReset(h Header)
}

// BaseListener implements Listener with no-op bodies and Filter
// defaulting to accept-everything. Embed it in a concrete listener and
// override only the callbacks that matter.
type BaseListener struct{}

func (BaseListener) Filter(Header) bool                     { return true }
func (BaseListener) OnPositionSensor(Header, string, int32) {}
func (BaseListener) OnSetDutyCycle(Header, string, int32)   {}
func (BaseListener) OnHeartbeat(Header)                     {}
func (BaseListener) OnReset(Header)                         {}

// Decoder streams bytes through a sliding sync search and, once synced,
// a fixed-width header and message parse. It borrows its input for the
// duration of one Parse call and holds no state across datagrams.
type Decoder struct{}

// Parse walks buf once. It slides a 32-bit register byte by byte until it
// equals Sync — this is how the decoder resynchronises after garbage or
// mid-stream loss, since a single corrupted datagram cannot desync the
// next one. Once synced it reads the fixed header, checks the listener's
// filter, then dispatches exactly NMessages message bodies in order.
// Unknown type bytes and truncated messages terminate parsing of the
// current datagram without invoking a partial callback; earlier messages
// in the same datagram have already been dispatched.
func (Decoder) Parse(listener Listener, buf []byte) {
	n := len(buf)
	i := 0

	var reg uint32
	synced := false
	for i < n {
		reg = (reg << 8) | uint32(buf[i])
		i++
		if reg == Sync {
			synced = true
			break
		}
	}
	if !synced {
		return
	}

	const restOfHeader = HeaderSize - 4
	if n-i < restOfHeader {
		return
	}

	var h Header
	h.SourceName = trimZero(buf[i : i+SourceNameLen])
	i += SourceNameLen
	h.SourceHash = trimZero(buf[i : i+SourceHashLen])
	i += SourceHashLen
	h.Sequence = binary.BigEndian.Uint32(buf[i : i+4])
	i += 4
	h.NMessages = buf[i]
	i++

	if !listener.Filter(h) {
		return
	}

	for m := 0; m < int(h.NMessages); m++ {
		if i >= n {
			return
		}
		typ := buf[i]
		i++

		switch typ {
		case TypePositionSensor:
			if n-i < DeviceNameLen+4 {
				return
			}
			device := trimZero(buf[i : i+DeviceNameLen])
			i += DeviceNameLen
			position := int32(binary.BigEndian.Uint32(buf[i : i+4]))
			i += 4
			listener.OnPositionSensor(h, device, position)

		case TypeSetDutyCycle:
			if n-i < DeviceNameLen+4 {
				return
			}
			device := trimZero(buf[i : i+DeviceNameLen])
			i += DeviceNameLen
			duty := int32(binary.BigEndian.Uint32(buf[i : i+4]))
			i += 4
			listener.OnSetDutyCycle(h, device, duty)

		case TypeHeartbeat:
			listener.OnHeartbeat(h)

		case TypeReset:
			listener.OnReset(h)

		default:
			return
		}
	}
}
