// Package congestion implements the sender's optional TCP-style
// congestion controller: slow start followed by congestion avoidance,
// with a timeout dropping back to slow start.
//
// ssthresh starts at 0, a sentinel meaning "not yet set": the
// slow-start-to-avoidance transition check stays disabled until the
// controller sees its first timeout.
package congestion

import "github.com/tspeterkim/CS118-Lab2/internal/wire"

// Mode is the controller's current congestion-control state.
type Mode int

const (
	Disabled Mode = iota
	SlowStart
	CongestionAvoidance
)

func (m Mode) String() string {
	switch m {
	case SlowStart:
		return "slow-start"
	case CongestionAvoidance:
		return "congestion-avoidance"
	default:
		return "disabled"
	}
}

// Controller holds the congestion window and slow-start threshold.
type Controller struct {
	Mode      Mode
	CwndBytes uint32
	Ssthresh  uint32
}

// New returns a Controller. When enabled is false, the controller is
// permanently Disabled and every method is a no-op, so the transfer
// engine can treat "no congestion control" and "congestion control not
// yet primed" uniformly.
func New(enabled bool) *Controller {
	c := &Controller{Mode: Disabled}
	if enabled {
		c.Mode = SlowStart
		c.CwndBytes = wire.PacketSize
		c.Ssthresh = 0
	}
	return c
}

// OnAck updates cwnd/mode in response to a received ack.
func (c *Controller) OnAck() {
	switch c.Mode {
	case SlowStart:
		c.CwndBytes += wire.PacketSize
		if c.Ssthresh > 0 && c.CwndBytes >= c.Ssthresh {
			c.Mode = CongestionAvoidance
		}
	case CongestionAvoidance:
		c.CwndBytes += (wire.PacketSize * wire.PacketSize) / c.CwndBytes
	}
}

// OnTimeout updates ssthresh/cwnd/mode in response to a retransmission timeout.
func (c *Controller) OnTimeout() {
	switch c.Mode {
	case SlowStart, CongestionAvoidance:
		half := c.CwndBytes / 2
		if half < wire.PacketSize {
			half = wire.PacketSize
		}
		c.Ssthresh = half
		c.CwndBytes = wire.PacketSize
		c.Mode = SlowStart
	}
}

// EffectiveWindowPackets returns the number of packets the congestion
// window currently permits in flight. windowCap is the configured cap;
// when the controller is Disabled, windowCap is returned unchanged.
func (c *Controller) EffectiveWindowPackets(windowCap int) int {
	if c.Mode == Disabled {
		return windowCap
	}
	n := int(c.CwndBytes / wire.PacketSize)
	if n > windowCap {
		return windowCap
	}
	if n < 1 {
		return 1
	}
	return n
}
