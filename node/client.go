package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"ev3broker/eventloop"
	"ev3broker/logger"
	"ev3broker/sourceid"
	"ev3broker/transport"
	"ev3broker/wire"
)

// Client is the operator-host personality: it has no motors of its
// own and no periodic broadcast. It transcodes inbound datagrams to
// JSON on stdout, and JSON commands read from stdin to outbound
// datagrams, one target address per line.
type Client struct {
	wire.BaseListener

	id   sourceid.SourceId
	sock *transport.Socket
	enc  *wire.Encoder
	dec  wire.Decoder
	log  *logger.Logger

	out     *json.Encoder
	lines   lineBuffer
	stdinFd int

	target transport.Address // destination for the command currently being encoded
	from   transport.Address // source of the datagram currently being decoded
}

// NewClient builds a Client bound to id, sending and receiving over
// sock. Inbound datagrams are transcoded to JSON written to out;
// outbound commands are read from the fd named by stdinFd, which must
// be a file descriptor valid for unix.Read (os.Stdin.Fd() in
// production; a test pipe's read end in tests).
func NewClient(id sourceid.SourceId, sock *transport.Socket, log *logger.Logger, out io.Writer, stdinFd int) *Client {
	c := &Client{
		id:      id,
		sock:    sock,
		log:     log,
		out:     json.NewEncoder(out),
		stdinFd: stdinFd,
	}
	c.enc = wire.NewEncoder(c.send, id.Name(), id.Hash())
	return c
}

// Register switches the client's input fd to non-blocking mode and
// adds the socket and input readiness handlers to loop.
func (c *Client) Register(loop *eventloop.Loop) error {
	if err := unix.SetNonblock(c.stdinFd, true); err != nil {
		return fmt.Errorf("node: set input non-blocking: %w", err)
	}
	loop.RegisterFd(c.stdinFd, c.onStdinReadable)
	loop.RegisterSource(c.sock, c.onSocketReadable)
	return nil
}

func (c *Client) send(buf []byte) bool {
	ok, err := c.sock.Send(c.target, buf)
	if err != nil {
		c.log.Log("client", logger.ERROR, fmt.Sprintf("send to %s: %v", c.target, err))
		return false
	}
	return ok
}

func (c *Client) onSocketReadable() bool {
	from, msg, ok, err := c.sock.Recv()
	if err != nil {
		c.log.Log("client", logger.ERROR, fmt.Sprintf("recv: %v", err))
		return false
	}
	if !ok {
		return false
	}
	c.from = from
	c.dec.Parse(c, msg)
	return true
}

func (c *Client) onStdinReadable() bool {
	var scratch [4096]byte
	n, err := unix.Read(c.stdinFd, scratch[:])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return true
		}
		c.log.Log("client", logger.ERROR, fmt.Sprintf("stdin read: %v", err))
		return false
	}
	if n == 0 {
		return false
	}

	for _, line := range c.lines.feed(scratch[:n]) {
		c.handleLine(line)
	}
	return true
}

func (c *Client) handleLine(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	var cmd commandLine
	if err := json.Unmarshal(line, &cmd); err != nil {
		c.emit(errorEvent{Type: "error", What: err.Error()})
		return
	}

	c.target = transport.NewAddress(cmd.IP[0], cmd.IP[1], cmd.IP[2], cmd.IP[3], cmd.Port)

	switch cmd.Type {
	case "set_duty_cycle":
		c.enc.WriteSetDutyCycle(cmd.Device, cmd.DutyCycle)
	case "reset":
		c.enc.WriteReset()
	default:
		c.emit(errorEvent{Type: "error", What: fmt.Sprintf("unknown command type %q", cmd.Type)})
		return
	}
	c.enc.Flush()
}

// OnPositionSensor implements wire.Listener: emit one position event
// per message, tagged with the header's source identity and the
// datagram's source address.
func (c *Client) OnPositionSensor(h wire.Header, deviceName string, position int32) {
	c.emit(positionEvent{
		SourceName: h.SourceName,
		SourceHash: h.SourceHash,
		IP:         [4]byte{c.from.A, c.from.B, c.from.C, c.from.D},
		Port:       c.from.Port,
		Seq:        h.Sequence,
		Type:       "position",
		Device:     deviceName,
		Position:   position,
	})
}

// OnHeartbeat implements wire.Listener: emit one heartbeat event.
func (c *Client) OnHeartbeat(h wire.Header) {
	c.emit(heartbeatEvent{
		SourceName: h.SourceName,
		SourceHash: h.SourceHash,
		IP:         [4]byte{c.from.A, c.from.B, c.from.C, c.from.D},
		Port:       c.from.Port,
		Seq:        h.Sequence,
		Type:       "heartbeat",
	})
}

func (c *Client) emit(v interface{}) {
	if err := c.out.Encode(v); err != nil && err != io.EOF {
		c.log.Log("client", logger.ERROR, fmt.Sprintf("write stdout: %v", err))
	}
}
