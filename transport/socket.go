package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const recvBufSize = 4096

// Socket owns one datagram fd, configured for address reuse and
// broadcast. It exposes the raw fd so eventloop.Loop can poll it
// alongside stdin and timers.
type Socket struct {
	fd  int
	buf [recvBufSize]byte
}

// NewSocket creates, configures and binds a UDP socket to bind.
func NewSocket(bind Address) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: setsockopt SO_BROADCAST: %w", err)
	}
	if err := unix.Bind(fd, toSockaddr(bind)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind %s: %w", bind, err)
	}

	return &Socket{fd: fd}, nil
}

// Fd satisfies eventloop.FdSource.
func (s *Socket) Fd() int {
	return s.fd
}

// Recv reads one datagram, retrying internally over EAGAIN/EWOULDBLOCK/
// EINTR. It returns ok=false only when the kernel reported an orderly
// shutdown (a zero-length read); partial reads cannot happen on a
// datagram socket. Unrecoverable I/O errors surface as a typed error.
func (s *Socket) Recv() (addr Address, msg []byte, ok bool, err error) {
	for {
		n, from, rerr := unix.Recvfrom(s.fd, s.buf[:], 0)
		if rerr != nil {
			if isRetryable(rerr) {
				continue
			}
			return Address{}, nil, false, fmt.Errorf("transport: recvfrom: %w", rerr)
		}
		if n == 0 {
			return Address{}, nil, false, nil
		}

		addr, err = fromSockaddr(from)
		if err != nil {
			return Address{}, nil, false, err
		}
		msg = make([]byte, n)
		copy(msg, s.buf[:n])
		return addr, msg, true, nil
	}
}

// Send transmits the full datagram to addr, retrying over
// EAGAIN/EWOULDBLOCK/EINTR. It returns true only once the whole datagram
// has been handed to the kernel; unrecoverable errors surface as a typed
// error.
func (s *Socket) Send(addr Address, msg []byte) (bool, error) {
	for {
		err := unix.Sendto(s.fd, msg, 0, toSockaddr(addr))
		if err == nil {
			return true, nil
		}
		if isRetryable(err) {
			continue
		}
		return false, fmt.Errorf("transport: sendto %s: %w", addr, err)
	}
}

// LocalAddr reports the address the socket is actually bound to,
// useful after binding to port 0 to let the kernel pick one.
func (s *Socket) LocalAddr() (Address, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return Address{}, fmt.Errorf("transport: getsockname: %w", err)
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return Address{}, fmt.Errorf("transport: unexpected sockaddr type %T", sa)
	}
	return Address{
		A:    sa4.Addr[0],
		B:    sa4.Addr[1],
		C:    sa4.Addr[2],
		D:    sa4.Addr[3],
		Port: uint16(sa4.Port),
	}, nil
}

// Close releases the underlying fd.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

func isRetryable(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}

func toSockaddr(addr Address) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{
		Port: int(addr.Port),
		Addr: [4]byte{addr.A, addr.B, addr.C, addr.D},
	}
}

func fromSockaddr(sa unix.Sockaddr) (Address, error) {
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return Address{}, fmt.Errorf("transport: unexpected sockaddr type %T", sa)
	}
	return Address{
		A:    sa4.Addr[0],
		B:    sa4.Addr[1],
		C:    sa4.Addr[2],
		D:    sa4.Addr[3],
		Port: uint16(sa4.Port),
	}, nil
}
