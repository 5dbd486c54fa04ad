package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/limits"
	"github.com/sirupsen/logrus"
)

// Receiver processes one inbound datagram. data is only valid for the
// duration of the call.
type Receiver func(localSocket int64, from Endpoint, data []byte)

// UDPHost owns one UDP socket. It sends datagrams for the peer layer and
// runs a receive loop that hands every datagram to a Receiver.
type UDPHost struct {
	conn     net.PacketConn
	socket   int64
	clock    *crypto.Clock
	receiver Receiver

	sent atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var nextSocketID atomic.Int64

// NewUDPHost binds listenAddr and starts the receive loop.
func NewUDPHost(listenAddr string, clock *crypto.Clock, receiver Receiver) (*UDPHost, error) {
	if clock == nil {
		return nil, errors.New("udp host: nil clock")
	}
	if receiver == nil {
		return nil, errors.New("udp host: nil receiver")
	}
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &UDPHost{
		conn:     conn,
		socket:   nextSocketID.Add(1),
		clock:    clock,
		receiver: receiver,
		ctx:      ctx,
		cancel:   cancel,
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewUDPHost",
		"local_addr": conn.LocalAddr().String(),
		"socket":     h.socket,
	}).Info("UDP host listening")

	h.wg.Add(1)
	go h.processPackets()
	return h, nil
}

// LocalSocket returns the identifier paths use to refer to this socket.
func (h *UDPHost) LocalSocket() int64 { return h.socket }

// LocalEndpoint returns the bound address.
func (h *UDPHost) LocalEndpoint() Endpoint {
	e, _ := EndpointFromNetAddr(h.conn.LocalAddr())
	return e
}

// TimeTicks returns monotonic milliseconds.
func (h *UDPHost) TimeTicks() int64 { return h.clock.Ticks() }

// TimeClock returns wall clock milliseconds since the Unix epoch.
func (h *UDPHost) TimeClock() int64 { return h.clock.WallMillis() }

// Sent returns the number of datagrams written.
func (h *UDPHost) Sent() uint64 { return h.sent.Load() }

// WireSend writes the concatenation of data as one datagram to endpoint.
// localSocket must be this host's socket or -1 for any.
func (h *UDPHost) WireSend(endpoint Endpoint, localSocket, localInterface int64, data [][]byte, flags int) bool {
	if localSocket >= 0 && localSocket != h.socket {
		return false
	}
	addr := endpoint.NetAddr()
	if addr == nil || endpoint.Type == EndpointTypeIPTCP {
		return false
	}

	var datagram []byte
	if len(data) == 1 {
		datagram = data[0]
	} else {
		for _, d := range data {
			datagram = append(datagram, d...)
		}
	}

	if _, err := h.conn.WriteTo(datagram, addr); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "WireSend",
			"endpoint": endpoint.String(),
			"size":     len(datagram),
			"error":    err.Error(),
		}).Warn("UDP send failed")
		return false
	}
	h.sent.Add(1)
	return true
}

// Close stops the receive loop and closes the socket.
func (h *UDPHost) Close() error {
	h.cancel()
	err := h.conn.Close()
	h.wg.Wait()
	return err
}

func (h *UDPHost) processPackets() {
	defer h.wg.Done()
	buffer := make([]byte, limits.PacketSizeMax)

	for {
		select {
		case <-h.ctx.Done():
			return
		default:
			h.processIncomingPacket(buffer)
		}
	}
}

func (h *UDPHost) processIncomingPacket(buffer []byte) {
	_ = h.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

	n, addr, err := h.conn.ReadFrom(buffer)
	if err != nil {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			if h.ctx.Err() == nil {
				logrus.WithFields(logrus.Fields{
					"function": "processIncomingPacket",
					"error":    err.Error(),
				}).Debug("UDP read failed")
			}
		}
		return
	}

	from, err := EndpointFromNetAddr(addr)
	if err != nil {
		return
	}
	h.receiver(h.socket, from, buffer[:n])
}
