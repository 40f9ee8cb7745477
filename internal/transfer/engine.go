// Package transfer implements the top-level event loop of the
// file-transfer sender: request intake, packet emission under window and
// congestion constraints, ack handling, timeout-driven retransmission,
// and transfer termination.
//
// One goroutine performs blocking reads from the transport, and a single
// engine goroutine owns all per-transfer state, selecting over the
// reader's channel and a time.Ticker that fires on a fixed interval to
// drive timeout checks — every
// state mutation funnels through channels onto that one goroutine, so no
// mutex ever guards a transferState.
package transfer

import (
	"bytes"
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tspeterkim/CS118-Lab2/internal/config"
	"github.com/tspeterkim/CS118-Lab2/internal/congestion"
	"github.com/tspeterkim/CS118-Lab2/internal/faultinjector"
	"github.com/tspeterkim/CS118-Lab2/internal/filesource"
	"github.com/tspeterkim/CS118-Lab2/internal/metrics"
	"github.com/tspeterkim/CS118-Lab2/internal/timerqueue"
	"github.com/tspeterkim/CS118-Lab2/internal/wire"
	"github.com/tspeterkim/CS118-Lab2/internal/window"
)

// readPollInterval bounds how long a single blocking UDP read can run
// before the reader goroutine re-checks ctx.Done(); it is not a protocol
// timing parameter.
const readPollInterval = 200 * time.Millisecond

// tickInterval is how often the engine re-checks the timer queue's head
// for a timeout. It only needs to be small relative to timeout_ms.
const tickInterval = 20 * time.Millisecond

// Transport is the subset of *net.UDPConn the engine needs. Satisfied by
// *net.UDPConn in production and by a fake in tests.
type Transport interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	SetReadDeadline(t time.Time) error
}

// Engine runs the sender's request-intake/transfer loop over a single
// shared transport, one transfer at a time.
type Engine struct {
	transport Transport
	source    *filesource.Source
	cfg       config.Config
	metrics   *metrics.Metrics
	randSrc   rand.Source
	now       func() int64
}

// New returns an Engine ready to Run. randSrc seeds each transfer's fault
// injector; pass rand.NewSource(seed) for reproducible tests.
func New(transport Transport, source *filesource.Source, cfg config.Config, m *metrics.Metrics, randSrc rand.Source) *Engine {
	return &Engine{
		transport: transport,
		source:    source,
		cfg:       cfg,
		metrics:   m,
		randSrc:   randSrc,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

type datagram struct {
	pkt  wire.Packet
	addr *net.UDPAddr
}

// transferState holds one active transfer's context plus the per-transfer
// collaborators it owns.
type transferState struct {
	id         uuid.UUID
	addr       *net.UDPAddr
	handle     *filesource.Handle
	fileSize   uint64
	readOffset uint64
	nextSeq    uint32
	win        *window.Window
	timers     *timerqueue.Queue
	cong       *congestion.Controller
	fault      *faultinjector.Injector
}

// Run drives the engine until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	rawCh := make(chan datagram, 16)

	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		EnableSignalHandling: false,
		ShutdownOnNonError:   true,
	})
	grp.Go("udp-reader", func(ctx context.Context) error {
		return e.readLoop(ctx, rawCh)
	})
	grp.Go("engine", func(ctx context.Context) error {
		return e.mainLoop(ctx, rawCh)
	})
	return grp.Wait()
}

func (e *Engine) readLoop(ctx context.Context, out chan<- datagram) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = derror.PanicToError(r)
		}
	}()
	buf := make([]byte, wire.PacketSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.transport.SetReadDeadline(time.Now().Add(readPollInterval)); err != nil {
			return errors.Wrap(err, "setting read deadline")
		}
		n, addr, err := e.transport.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return errors.Wrap(err, "reading from transport")
		}
		if n != wire.PacketSize {
			// Too short/long to be one of ours; indistinguishable from corruption.
			continue
		}
		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}
		d := datagram{pkt: pkt, addr: addr}
		select {
		case out <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// mainLoop is the single goroutine that owns all transfer state. tc is
// nil while waiting for a request and non-nil while a transfer is active.
func (e *Engine) mainLoop(ctx context.Context, rawCh <-chan datagram) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = derror.PanicToError(r)
		}
	}()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var tc *transferState
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case d := <-rawCh:
			if tc == nil {
				tc = e.handleRequest(ctx, d)
				continue
			}
			if d.addr.String() != tc.addr.String() {
				// A datagram from a different peer while a transfer is
				// active; one transfer at a time, so ignore it.
				continue
			}
			if done := e.handleAck(ctx, tc, d.pkt); done {
				tc.handle.Close()
				tc = nil
			}

		case now := <-ticker.C:
			if tc == nil {
				continue
			}
			e.checkTimeout(ctx, tc, now.UnixMilli())
		}
	}
}

// handleRequest treats d as a file request: it parses the NUL-terminated
// filename from the payload and either starts a transfer or, if the file
// can't be opened, replies with an Error packet and returns to intake
// instead of exiting the process.
func (e *Engine) handleRequest(ctx context.Context, d datagram) *transferState {
	filename := parseFilename(d.pkt.Payload[:])
	id := uuid.New()
	dlog.Infof(ctx, "[%s] request for file %q from %s", id, filename, d.addr)

	handle, err := e.source.Open(filename)
	if err != nil {
		dlog.Errorf(ctx, "[%s] %v", id, err)
		e.sendError(ctx, d.addr)
		return nil
	}

	tc := &transferState{
		id:       id,
		addr:     d.addr,
		handle:   handle,
		fileSize: handle.Size(),
		win:      window.New(),
		timers:   timerqueue.New(),
		cong:     congestion.New(e.cfg.CongestionMode),
		fault:    faultinjector.New(e.cfg.PLoss, e.cfg.PCorrupt, e.randSrc),
	}
	if err := e.prime(ctx, tc); err != nil {
		dlog.Errorf(ctx, "[%s] priming transfer: %v", id, err)
		tc.handle.Close()
		return nil
	}
	return tc
}

func (e *Engine) sendError(ctx context.Context, addr *net.UDPAddr) {
	pkt := wire.Packet{Type: wire.Error}
	e.sendPacket(ctx, addr, &pkt)
}

func (e *Engine) sendPacket(ctx context.Context, addr *net.UDPAddr, pkt *wire.Packet) {
	buf := wire.Encode(pkt)
	if _, err := e.transport.WriteToUDP(buf, addr); err != nil {
		dlog.Errorf(ctx, "sending %s seq=%d to %s: %v", pkt.Type, pkt.Seq, addr, err)
	}
}

func parseFilename(payload []byte) string {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		return string(payload[:i])
	}
	return string(payload)
}

// prime sends the initial burst of packets for a freshly opened transfer:
// exactly one packet if congestion control is enabled (slow start begins
// at cwnd=1 packet), otherwise as many as fit in window_cap_packets or
// the file, whichever is smaller.
//
// A zero-byte file never satisfies "read_offset < file_size", so no
// packet is sent and no FIN is ever sent; the transfer is marked complete
// only when the next datagram from the same peer reaches handleAck.
func (e *Engine) prime(ctx context.Context, tc *transferState) error {
	if tc.cong.Mode != congestion.Disabled {
		if tc.readOffset < tc.fileSize {
			return e.sendNext(ctx, tc)
		}
		return nil
	}
	cap := e.cfg.WindowCapPackets()
	for tc.win.Size() < cap && tc.readOffset < tc.fileSize {
		if err := e.sendNext(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}

// sendNext reads up to PayloadMax bytes at read_offset, builds a DATA or
// FIN packet, assigns and advances next_seq, advances read_offset, and
// registers the packet with the window and timer queue before emitting it.
func (e *Engine) sendNext(ctx context.Context, tc *transferState) error {
	buf, err := tc.handle.ReadAt(tc.readOffset, wire.PayloadMax)
	if err != nil {
		return errors.Wrap(err, "reading file")
	}
	n := len(buf)

	seq := tc.nextSeq
	pkt := wire.Packet{Seq: seq, Size: uint32(n)}
	copy(pkt.Payload[:], buf)

	tc.nextSeq = wire.NextSeq(tc.nextSeq)
	tc.readOffset += uint64(n)

	if tc.readOffset >= tc.fileSize {
		pkt.Type = wire.Fin
	} else {
		pkt.Type = wire.Data
	}
	pkt.Checksummed()

	tc.win.Push(seq)
	tc.timers.Push(pkt, e.now())
	e.sendPacket(ctx, tc.addr, &pkt)

	if e.metrics != nil {
		e.metrics.PacketsSentTotal.Inc()
		e.metrics.WindowSize.Set(float64(tc.win.Size()))
		e.metrics.InflightPackets.Set(float64(tc.timers.Len()))
		e.metrics.CwndBytes.Set(float64(tc.cong.CwndBytes))
	}
	dlog.Tracef(ctx, "[%s] sent %s seq=%d size=%d", tc.id, pkt.Type, seq, n)
	return nil
}

// handleAck processes one inbound datagram as an ack for the active
// transfer. Returns true if the transfer has now completed.
func (e *Engine) handleAck(ctx context.Context, tc *transferState, pkt wire.Packet) bool {
	switch tc.fault.Apply() {
	case faultinjector.Dropped:
		if e.metrics != nil {
			e.metrics.AcksDroppedTotal.WithLabelValues("loss").Inc()
		}
		dlog.Tracef(ctx, "[%s] lost ack seq=%d", tc.id, pkt.Seq)
		return false
	case faultinjector.Corrupted:
		if e.metrics != nil {
			e.metrics.AcksDroppedTotal.WithLabelValues("corrupt").Inc()
		}
		dlog.Tracef(ctx, "[%s] corrupted ack seq=%d", tc.id, pkt.Seq)
		return false
	}

	if e.metrics != nil {
		e.metrics.AcksReceivedTotal.Inc()
	}
	tc.cong.OnAck()
	tc.timers.RemoveBySeq(pkt.Seq)
	tc.win.MarkAcked(pkt.Seq)
	tc.win.Advance()
	dlog.Tracef(ctx, "[%s] acked seq=%d window=%d", tc.id, pkt.Seq, tc.win.Size())

	limit := tc.cong.EffectiveWindowPackets(e.cfg.WindowCapPackets())
	for tc.win.Size() < limit && tc.readOffset < tc.fileSize {
		if err := e.sendNext(ctx, tc); err != nil {
			dlog.Errorf(ctx, "[%s] %v", tc.id, err)
			break
		}
	}

	if e.metrics != nil {
		e.metrics.WindowSize.Set(float64(tc.win.Size()))
		e.metrics.InflightPackets.Set(float64(tc.timers.Len()))
		e.metrics.CwndBytes.Set(float64(tc.cong.CwndBytes))
	}

	if tc.timers.Empty() && tc.readOffset >= tc.fileSize {
		dlog.Infof(ctx, "[%s] transfer complete", tc.id)
		return true
	}
	return false
}

// checkTimeout retransmits the timer queue's head if it has been
// outstanding longer than timeout_ms (same seq, same bytes, no new window
// slot), then rotates it to the tail with a fresh send time.
func (e *Engine) checkTimeout(ctx context.Context, tc *transferState, nowMs int64) {
	head, ok := tc.timers.Head()
	if !ok {
		return
	}
	if nowMs-head.SendTime <= int64(e.cfg.TimeoutMs) {
		return
	}

	// Retransmission resends the exact bytes originally sent: same seq,
	// same size, same payload. It does not touch read_offset or allocate
	// a new window slot.
	pkt := head.Packet
	dlog.Debugf(ctx, "[%s] timeout: retransmitting seq=%d", tc.id, pkt.Seq)
	e.sendPacket(ctx, tc.addr, &pkt)
	tc.timers.RotateHead(nowMs)
	tc.cong.OnTimeout()

	if e.metrics != nil {
		e.metrics.PacketsSentTotal.Inc()
		e.metrics.RetransmitsTotal.Inc()
		e.metrics.CwndBytes.Set(float64(tc.cong.CwndBytes))
	}
}
