package wire

import "strings"

// Header carries the per-datagram framing metadata: who sent it, in what
// order, and how many messages follow.
type Header struct {
	SourceName string
	SourceHash string
	Sequence   uint32
	NMessages  uint8
}

// SameSource reports whether h names the process identity (name, hash),
// i.e. both fields are equal.
func (h Header) SameSource(name, hash string) bool {
	return h.SourceName == name && h.SourceHash == hash
}

// padTrunc left-justifies s into a zero-padded, zero-truncated field of
// exactly n bytes. Inputs longer than n are truncated; inputs shorter are
// zero-padded and never NUL-terminated beyond that padding.
func padTrunc(s string, n int) []byte {
	buf := make([]byte, n)
	copy(buf, s)
	return buf
}

// trimZero strips trailing zero bytes from a fixed-width field, turning
// it back into a Go string for display and lookups.
func trimZero(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
