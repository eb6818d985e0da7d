package wire

import "testing"

type recordingListener struct {
	BaseListener
	filterResult  bool
	filterCalls   int
	positions     []struct {
		device string
		pos    int32
	}
	duties []struct {
		device string
		duty   int32
	}
	heartbeats int
	resets     int
	lastHeader Header
}

func newRecordingListener() *recordingListener {
	return &recordingListener{filterResult: true}
}

func (l *recordingListener) Filter(h Header) bool {
	l.filterCalls++
	l.lastHeader = h
	return l.filterResult
}

func (l *recordingListener) OnPositionSensor(h Header, device string, pos int32) {
	l.positions = append(l.positions, struct {
		device string
		pos    int32
	}{device, pos})
}

func (l *recordingListener) OnSetDutyCycle(h Header, device string, duty int32) {
	l.duties = append(l.duties, struct {
		device string
		duty   int32
	}{device, duty})
}

func (l *recordingListener) OnHeartbeat(Header) { l.heartbeats++ }
func (l *recordingListener) OnReset(Header)     { l.resets++ }

func encodeOne(t *testing.T, build func(e *Encoder)) []byte {
	t.Helper()
	var frames [][]byte
	enc := NewEncoder(collectSends(&frames), "ev3", "deadbeef")
	build(enc)
	enc.Flush()
	if len(frames) != 1 {
		t.Fatalf("expected exactly one datagram, got %d", len(frames))
	}
	return frames[0]
}

func TestDecoderRoundTrip(t *testing.T) {
	datagram := encodeOne(t, func(e *Encoder) {
		e.WritePositionSensor("motor_A", 3911)
		e.WriteSetDutyCycle("motor_outA", -37)
		e.WriteHeartbeat()
		e.WriteReset()
	})

	l := newRecordingListener()
	var d Decoder
	d.Parse(l, datagram)

	if l.filterCalls != 1 {
		t.Fatalf("filter should be called exactly once, got %d", l.filterCalls)
	}
	if len(l.positions) != 1 || l.positions[0].device != "motor_A" || l.positions[0].pos != 3911 {
		t.Fatalf("position sensor mismatch: %+v", l.positions)
	}
	if len(l.duties) != 1 || l.duties[0].device != "motor_outA" || l.duties[0].duty != -37 {
		t.Fatalf("set duty cycle mismatch: %+v", l.duties)
	}
	if l.heartbeats != 1 {
		t.Fatalf("expected 1 heartbeat, got %d", l.heartbeats)
	}
	if l.resets != 1 {
		t.Fatalf("expected 1 reset, got %d", l.resets)
	}
}

func TestDecoderFilterRejectsBeforeBodyCallbacks(t *testing.T) {
	datagram := encodeOne(t, func(e *Encoder) {
		e.WriteHeartbeat()
	})

	l := newRecordingListener()
	l.filterResult = false
	var d Decoder
	d.Parse(l, datagram)

	if l.heartbeats != 0 {
		t.Fatal("body callback must not fire when filter rejects")
	}
}

func TestDecoderSlidingSyncSkipsGarbagePrefix(t *testing.T) {
	datagram := encodeOne(t, func(e *Encoder) {
		e.WritePositionSensor("motor_A", 1)
	})

	garbage := make([]byte, 32)
	for i := range garbage {
		garbage[i] = byte(i*7 + 1)
	}
	withPrefix := append(garbage, datagram...)

	l := newRecordingListener()
	var d Decoder
	d.Parse(l, withPrefix)

	if len(l.positions) != 1 {
		t.Fatalf("expected sliding sync to recover the datagram, got %d callbacks", len(l.positions))
	}
}

func TestDecoderUnknownTypeTerminatesButKeepsEarlierMessages(t *testing.T) {
	datagram := encodeOne(t, func(e *Encoder) {
		e.WriteHeartbeat()
		e.WriteReset()
	})
	// Corrupt the second message's type byte (right after the first,
	// body-less heartbeat) into something outside the known set.
	corrupted := append([]byte(nil), datagram...)
	secondTypeOffset := HeaderSize + heartbeatSize
	corrupted[secondTypeOffset] = 0x7E

	l := newRecordingListener()
	var d Decoder
	d.Parse(l, corrupted)

	if l.heartbeats != 1 {
		t.Fatalf("expected the earlier heartbeat to still dispatch, got %d", l.heartbeats)
	}
	if l.resets != 0 {
		t.Fatal("reset must not fire past the corrupted type byte")
	}
}

func TestDecoderTruncatedMessageDiscardedWithoutPartialCallback(t *testing.T) {
	datagram := encodeOne(t, func(e *Encoder) {
		e.WritePositionSensor("motor_A", 1)
	})
	truncated := datagram[:len(datagram)-2]

	l := newRecordingListener()
	var d Decoder
	d.Parse(l, truncated)

	if len(l.positions) != 0 {
		t.Fatal("truncated message must not invoke a partial callback")
	}
}

func TestDecoderDeviceNameTruncatedToNDeviceBytes(t *testing.T) {
	longName := "this_name_is_definitely_longer_than_sixteen"
	datagram := encodeOne(t, func(e *Encoder) {
		e.WritePositionSensor(longName, 42)
	})

	l := newRecordingListener()
	var d Decoder
	d.Parse(l, datagram)

	want := longName[:DeviceNameLen]
	if len(l.positions) != 1 || l.positions[0].device != want {
		t.Fatalf("device name mismatch: got %q want %q", l.positions[0].device, want)
	}
}

func TestDecoderExactDeviceNameLengthRoundTrips(t *testing.T) {
	exact := "exactly16bytes!!"
	if len(exact) != DeviceNameLen {
		t.Fatalf("test fixture must be exactly %d bytes, got %d", DeviceNameLen, len(exact))
	}
	datagram := encodeOne(t, func(e *Encoder) {
		e.WriteSetDutyCycle(exact, 5)
	})

	l := newRecordingListener()
	var d Decoder
	d.Parse(l, datagram)

	if len(l.duties) != 1 || l.duties[0].device != exact {
		t.Fatalf("exact-length device name mismatch: %+v", l.duties)
	}
}

func TestDecoderNoSyncWordIsANoOp(t *testing.T) {
	l := newRecordingListener()
	var d Decoder
	d.Parse(l, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	if l.filterCalls != 0 {
		t.Fatal("filter must not be called when no sync word is present")
	}
}

func TestDecoderSequenceRoundTrips(t *testing.T) {
	var frames [][]byte
	enc := NewEncoder(collectSends(&frames), "ev3", "deadbeef")
	enc.WriteHeartbeat()
	enc.Flush()
	enc.WriteHeartbeat()
	enc.Flush()

	l := newRecordingListener()
	var d Decoder
	d.Parse(l, frames[1])

	if l.lastHeader.Sequence != 1 {
		t.Fatalf("sequence = %d, want 1", l.lastHeader.Sequence)
	}
}
