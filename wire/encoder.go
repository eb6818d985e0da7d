package wire

import "encoding/binary"

// SendFunc transmits one complete datagram and reports whether the
// transmission succeeded. A false return sets the encoder's sticky error
// flag; the encoder itself never inspects why the send failed.
type SendFunc func(buf []byte) bool

// Encoder accumulates messages into a fixed-size datagram buffer and
// flushes them through a SendFunc. It never blocks and never allocates
// after construction.
type Encoder struct {
	send SendFunc

	buf         [MTUBudget]byte
	writeCursor int
	sequence    uint32
	count       uint8
	good        bool
}

// NewEncoder constructs an Encoder bound to a fixed source identity. The
// identity occupies the header prefix once; every subsequent Flush only
// has to patch the sequence and message-count fields.
func NewEncoder(send SendFunc, sourceName, sourceHash string) *Encoder {
	e := &Encoder{send: send, good: true}

	binary.BigEndian.PutUint32(e.buf[0:4], Sync)
	copy(e.buf[4:4+SourceNameLen], padTrunc(sourceName, SourceNameLen))
	copy(e.buf[4+SourceNameLen:4+SourceNameLen+SourceHashLen], padTrunc(sourceHash, SourceHashLen))
	e.writeCursor = HeaderSize

	return e
}

// Good reports whether every send callback invoked so far has succeeded.
// Once false, it never becomes true again: a fresh Encoder is required to
// clear the sticky flag.
func (e *Encoder) Good() bool {
	return e.good
}

const sequenceOffset = 4 + SourceNameLen + SourceHashLen
const nMessagesOffset = sequenceOffset + 4

// flushIfNoSpace flushes the current batch if appending size more bytes,
// or one more message, would overflow the datagram.
func (e *Encoder) flushIfNoSpace(size int) {
	if e.writeCursor+size > MTUBudget || e.count >= MaxMessagesPerDatagram {
		e.Flush()
	}
}

// WritePositionSensor enqueues a PositionSensor message.
func (e *Encoder) WritePositionSensor(deviceName string, position int32) *Encoder {
	e.flushIfNoSpace(positionSensorSize)
	e.buf[e.writeCursor] = TypePositionSensor
	e.writeCursor++
	copy(e.buf[e.writeCursor:e.writeCursor+DeviceNameLen], padTrunc(deviceName, DeviceNameLen))
	e.writeCursor += DeviceNameLen
	binary.BigEndian.PutUint32(e.buf[e.writeCursor:e.writeCursor+4], uint32(position))
	e.writeCursor += 4
	e.count++
	return e
}

// WriteSetDutyCycle enqueues a SetDutyCycle message.
func (e *Encoder) WriteSetDutyCycle(deviceName string, dutyCycle int32) *Encoder {
	e.flushIfNoSpace(setDutyCycleSize)
	e.buf[e.writeCursor] = TypeSetDutyCycle
	e.writeCursor++
	copy(e.buf[e.writeCursor:e.writeCursor+DeviceNameLen], padTrunc(deviceName, DeviceNameLen))
	e.writeCursor += DeviceNameLen
	binary.BigEndian.PutUint32(e.buf[e.writeCursor:e.writeCursor+4], uint32(dutyCycle))
	e.writeCursor += 4
	e.count++
	return e
}

// WriteHeartbeat enqueues a body-less Heartbeat message.
func (e *Encoder) WriteHeartbeat() *Encoder {
	e.flushIfNoSpace(heartbeatSize)
	e.buf[e.writeCursor] = TypeHeartbeat
	e.writeCursor++
	e.count++
	return e
}

// WriteReset enqueues a body-less Reset message.
func (e *Encoder) WriteReset() *Encoder {
	e.flushIfNoSpace(resetSize)
	e.buf[e.writeCursor] = TypeReset
	e.writeCursor++
	e.count++
	return e
}

// Flush hands the current batch to the send callback, then resets the
// write cursor past the header. sequence always advances, even for an
// empty batch and even once the sticky error flag is set — this is what
// lets a receiver infer loss from a sequence gap unambiguously (see the
// decoder's sliding sync). The send callback itself is only invoked for
// a non-empty batch while the encoder is still good: an empty flush is a
// no-op on the wire, and once good goes false the encoder stops sending
// without a fresh Encoder to clear the flag.
func (e *Encoder) Flush() *Encoder {
	if e.good && e.count > 0 {
		binary.BigEndian.PutUint32(e.buf[sequenceOffset:sequenceOffset+4], e.sequence)
		e.buf[nMessagesOffset] = e.count

		if !e.send(e.buf[:e.writeCursor]) {
			e.good = false
		}
	}

	e.sequence++
	e.writeCursor = HeaderSize
	e.count = 0
	return e
}
