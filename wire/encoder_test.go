package wire

import (
	"bytes"
	"testing"
)

func collectSends(frames *[][]byte) SendFunc {
	return func(buf []byte) bool {
		cp := make([]byte, len(buf))
		copy(cp, buf)
		*frames = append(*frames, cp)
		return true
	}
}

func TestEncoderScenario1_TwoPositionSensors(t *testing.T) {
	var frames [][]byte
	enc := NewEncoder(collectSends(&frames), "ev3", "deadbeef")

	enc.WritePositionSensor("motor_A", 3911)
	enc.WritePositionSensor("motor_B", 778)
	enc.Flush()

	if !enc.Good() {
		t.Fatal("encoder should still be good")
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 datagram, got %d", len(frames))
	}

	got := frames[0]

	want := []byte{0xCA, 0xA2, 0x9C, 0x3A}
	if !bytes.Equal(got[:4], want) {
		t.Fatalf("sync mismatch: got % x", got[:4])
	}

	wantName := padTrunc("ev3", SourceNameLen)
	if !bytes.Equal(got[4:20], wantName) {
		t.Fatalf("source_name mismatch: got % x", got[4:20])
	}

	wantHash := padTrunc("deadbeef", SourceHashLen)
	if !bytes.Equal(got[20:28], wantHash) {
		t.Fatalf("source_hash mismatch: got % x", got[20:28])
	}

	if !bytes.Equal(got[28:32], []byte{0, 0, 0, 0}) {
		t.Fatalf("sequence mismatch: got % x", got[28:32])
	}
	if got[32] != 0x02 {
		t.Fatalf("n_messages mismatch: got %#x", got[32])
	}

	msgA := got[33:54]
	wantMsgA := append([]byte{0x01}, padTrunc("motor_A", DeviceNameLen)...)
	wantMsgA = append(wantMsgA, 0x00, 0x00, 0x0F, 0x47)
	if !bytes.Equal(msgA, wantMsgA) {
		t.Fatalf("message A mismatch: got % x want % x", msgA, wantMsgA)
	}

	msgB := got[54:75]
	wantMsgB := append([]byte{0x01}, padTrunc("motor_B", DeviceNameLen)...)
	wantMsgB = append(wantMsgB, 0x00, 0x00, 0x03, 0x0A)
	if !bytes.Equal(msgB, wantMsgB) {
		t.Fatalf("message B mismatch: got % x want % x", msgB, wantMsgB)
	}
}

func TestEncoderEmptyFlushIsNoOpOnTheWireButAdvancesSequence(t *testing.T) {
	var frames [][]byte
	enc := NewEncoder(collectSends(&frames), "ev3", "aaaaaaaa")

	enc.Flush()
	enc.Flush()
	if len(frames) != 0 {
		t.Fatalf("empty flush must not invoke the send callback, got %d datagrams", len(frames))
	}
	if enc.sequence != 2 {
		t.Fatalf("sequence = %d, want 2: an empty flush still advances it", enc.sequence)
	}

	enc.WriteHeartbeat()
	enc.Flush()
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 datagram from the non-empty flush, got %d", len(frames))
	}
	seq := uint32(frames[0][28])<<24 | uint32(frames[0][29])<<16 | uint32(frames[0][30])<<8 | uint32(frames[0][31])
	if seq != 2 {
		t.Fatalf("datagram sequence = %d, want 2", seq)
	}
}

func TestEncoderStickyErrorFlagSuppressesFurtherSends(t *testing.T) {
	calls := 0
	send := func(buf []byte) bool {
		calls++
		return calls == 1 // first send succeeds, rest fail
	}
	enc := NewEncoder(send, "ev3", "aaaaaaaa")

	enc.WriteHeartbeat()
	enc.Flush()
	if !enc.Good() {
		t.Fatal("encoder should be good after a successful send")
	}

	enc.WriteHeartbeat()
	enc.Flush()
	if enc.Good() {
		t.Fatal("encoder should be marked bad after a failed send")
	}
	if calls != 2 {
		t.Fatalf("expected send to be attempted 2 times, got %d", calls)
	}

	// Once bad, further flushes never call send again, but sequence
	// still advances.
	enc.WriteHeartbeat()
	enc.Flush()
	enc.Flush()
	if calls != 2 {
		t.Fatalf("expected send not to be attempted once the encoder is bad, got %d calls", calls)
	}
	if enc.sequence != 4 {
		t.Fatalf("sequence = %d, want 4: sequence keeps advancing after the sticky error", enc.sequence)
	}
}

func TestEncoderDeviceNameTruncation(t *testing.T) {
	var frames [][]byte
	enc := NewEncoder(collectSends(&frames), "ev3", "aaaaaaaa")

	longName := "motor_outA_way_too_long_for_field"
	enc.WritePositionSensor(longName, 1)
	enc.Flush()

	got := frames[0][33 : 33+1+DeviceNameLen]
	wantDevice := padTrunc(longName, DeviceNameLen)
	if !bytes.Equal(got[1:], wantDevice) {
		t.Fatalf("device name not truncated to %d bytes: got % x", DeviceNameLen, got[1:])
	}
	if len(wantDevice) != DeviceNameLen {
		t.Fatalf("padTrunc invariant broken")
	}
}

func TestEncoderFlushesImplicitlyWhenBatchWouldOverflowMTU(t *testing.T) {
	var frames [][]byte
	enc := NewEncoder(collectSends(&frames), "ev3", "aaaaaaaa")

	perMsg := 1 + DeviceNameLen + 4
	fitCount := (MTUBudget - HeaderSize) / perMsg

	for i := 0; i < fitCount+1; i++ {
		enc.WriteSetDutyCycle("motor_outA", 42)
	}
	enc.Flush()

	if len(frames) != 2 {
		t.Fatalf("expected an implicit flush to split the batch, got %d datagrams", len(frames))
	}
	if len(frames[0]) > MTUBudget || len(frames[1]) > MTUBudget {
		t.Fatalf("datagram exceeds MTU budget")
	}
}

func TestEncoderNMessagesMatchesActualCount(t *testing.T) {
	var frames [][]byte
	enc := NewEncoder(collectSends(&frames), "ev3", "aaaaaaaa")

	enc.WriteHeartbeat()
	enc.WriteReset()
	enc.WritePositionSensor("motor_outA", -5)
	enc.Flush()

	if frames[0][32] != 3 {
		t.Fatalf("n_messages = %d, want 3", frames[0][32])
	}
}
