package transport

import (
	"net/netip"
	"sync"

	"github.com/opd-ai/vl1/limits"
	"github.com/opd-ai/vl1/protocol"
	"github.com/sirupsen/logrus"
)

// DefragmentTimeout is how long, in ticks, an incomplete packet is kept.
const DefragmentTimeout = 1000

type defragKey struct {
	id   [protocol.PacketIDSize]byte
	from netip.AddrPort
}

type partial struct {
	created   int64
	head      []byte
	fragments [limits.FragmentCountMax][]byte
	total     int
	have      int
	size      int
}

func (p *partial) complete() bool {
	return p.head != nil && p.total > 0 && p.have == p.total
}

// Defragmenter collects the head and fragments of fragmented packets
// arriving from one socket. It is safe for concurrent use.
type Defragmenter struct {
	mu      sync.Mutex
	pending map[defragKey]*partial
}

// NewDefragmenter returns an empty Defragmenter.
func NewDefragmenter() *Defragmenter {
	return &Defragmenter{pending: make(map[defragKey]*partial)}
}

// Assemble adds a datagram. When it completes a packet, Assemble returns
// the head datagram and the fragment datagrams in index order, headers
// included, and ok is true. Unfragmented packets complete immediately and
// are returned as given; pieces of fragmented packets are copied.
func (d *Defragmenter) Assemble(ticks int64, from Endpoint, datagram []byte) (head []byte, fragments [][]byte, ok bool) {
	if protocol.IsFragment(datagram) {
		fh, err := protocol.ParseFragmentHeader(datagram)
		if err != nil || fh.Index == 0 || int(fh.Index) >= int(fh.Total) || int(fh.Total) > limits.FragmentCountMax {
			dropDebug(from, "Dropping malformed fragment")
			return nil, nil, false
		}
		return d.add(ticks, defragKey{id: fh.ID, from: from.Addr}, int(fh.Index), int(fh.Total), datagram)
	}

	hdr, err := protocol.ParsePacketHeader(datagram)
	if err != nil {
		dropDebug(from, "Dropping short datagram")
		return nil, nil, false
	}
	if !hdr.Flags.Fragmented() {
		return datagram, nil, true
	}
	return d.add(ticks, defragKey{id: hdr.ID, from: from.Addr}, 0, 0, datagram)
}

func (d *Defragmenter) add(ticks int64, key defragKey, index, total int, datagram []byte) ([]byte, [][]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked(ticks)

	p := d.pending[key]
	if p == nil {
		p = &partial{created: ticks}
		d.pending[key] = p
	}
	if total > 0 {
		if p.total != 0 && p.total != total {
			delete(d.pending, key)
			logrus.WithField("function", "Assemble").Debug("Fragment totals disagree, dropping packet")
			return nil, nil, false
		}
		p.total = total
	}

	slot := &p.head
	if index > 0 {
		slot = &p.fragments[index]
	}
	if *slot != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Assemble",
			"index":    index,
		}).Debug("Dropping duplicate fragment")
		return nil, nil, false
	}
	if p.size+len(datagram) > limits.PacketSizeMax+limits.FragmentCountMax*protocol.FragmentHeaderSize {
		delete(d.pending, key)
		logrus.WithField("function", "Assemble").Debug("Reassembled packet too large, dropping")
		return nil, nil, false
	}
	*slot = append([]byte(nil), datagram...)
	p.have++
	p.size += len(datagram)

	if !p.complete() {
		return nil, nil, false
	}
	delete(d.pending, key)
	return p.head, p.fragments[1:p.total], true
}

func (d *Defragmenter) expireLocked(ticks int64) {
	expired := 0
	for k, p := range d.pending {
		if ticks-p.created > DefragmentTimeout {
			delete(d.pending, k)
			expired++
		}
	}
	if expired > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "expireLocked",
			"expired":  expired,
		}).Debug("Expired incomplete packets")
	}
}

func dropDebug(from Endpoint, msg string) {
	logrus.WithFields(logrus.Fields{
		"function": "Assemble",
		"from":     from.String(),
	}).Debug(msg)
}

// Pending returns the number of incomplete packets held.
func (d *Defragmenter) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
