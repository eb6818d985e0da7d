package node

import "bytes"

// lineBuffer accumulates bytes read from a non-blocking fd across
// however many readiness callbacks it takes for a newline to show up,
// and yields complete lines as they become available.
type lineBuffer struct {
	buf []byte
}

// feed appends chunk and returns every complete ("\n"-terminated)
// line now available, leaving any trailing partial line buffered for
// the next call.
func (lb *lineBuffer) feed(chunk []byte) [][]byte {
	lb.buf = append(lb.buf, chunk...)

	var lines [][]byte
	for {
		idx := bytes.IndexByte(lb.buf, '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx)
		copy(line, lb.buf[:idx])
		lines = append(lines, line)
		lb.buf = lb.buf[idx+1:]
	}
	return lines
}
