// Package transport wraps one UDP datagram socket: address conversion
// between the broker's Address and the kernel sockaddr, and a
// recv/send pair that loops over retryable errors so the caller never
// has to think about EAGAIN.
package transport

import "fmt"

// Address is four octets plus a port, host-order on this struct and
// translated to/from network-order only at the sockaddr boundary.
type Address struct {
	A, B, C, D byte
	Port       uint16
}

// NewAddress builds an Address from its four octets and a port.
func NewAddress(a, b, c, d byte, port uint16) Address {
	return Address{A: a, B: b, C: c, D: d, Port: port}
}

// AnyAddress is 0.0.0.0:port, suitable for binding.
func AnyAddress(port uint16) Address {
	return Address{Port: port}
}

// LimitedBroadcast is 255.255.255.255:port, the link-local broadcast
// address a server node speaks to.
func LimitedBroadcast(port uint16) Address {
	return Address{A: 255, B: 255, C: 255, D: 255, Port: port}
}

func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", a.A, a.B, a.C, a.D, a.Port)
}
