package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/opd-ai/vl1/node"
	"github.com/opd-ai/vl1/peer"
	"github.com/opd-ai/vl1/protocol"
)

var (
	mtu         int
	frameSize   int
	preferSalsa bool
	fips        bool
	timeout     time.Duration
)

// probeHandler collects what the self test waits for.
type probeHandler struct {
	frames chan []byte
	echoes chan uint64
}

func newProbeHandler() *probeHandler {
	return &probeHandler{frames: make(chan []byte, 1), echoes: make(chan uint64, 1)}
}

func (h *probeHandler) HandlePacket(p *peer.Peer, path peer.Path, fs, ea bool, verb protocol.Verb, id uint64, payload []byte) bool {
	if verb != protocol.VerbFrame {
		return false
	}
	select {
	case h.frames <- append([]byte(nil), payload...):
	default:
	}
	return true
}

func (h *probeHandler) HandleError(p *peer.Peer, path peer.Path, fs, ea bool, inReVerb protocol.Verb, inRe uint64, code uint8, payload []byte) {
}

func (h *probeHandler) HandleOK(p *peer.Peer, path peer.Path, fs, ea bool, inReVerb protocol.Verb, inRe uint64, payload []byte) {
	if inReVerb != protocol.VerbEcho {
		return
	}
	select {
	case h.echoes <- inRe:
	default:
	}
}

func selftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run two nodes over loopback and exchange traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&mtu, "mtu", 1432, "physical MTU")
	cmd.Flags().IntVar(&frameSize, "size", 4000, "frame payload size in bytes")
	cmd.Flags().BoolVar(&preferSalsa, "salsa", false, "prefer Salsa20/Poly1305 over AES-GMAC-SIV")
	cmd.Flags().BoolVar(&fips, "fips", false, "FIPS mode")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "time to wait for each step")
	return cmd
}

func runSelftest(out io.Writer) error {
	opts := peer.NewOptions()
	opts.MTU = mtu
	opts.PreferSalsaPoly1305 = preferSalsa

	ha, hb := newProbeHandler(), newProbeHandler()
	a, err := node.New(node.Config{ListenAddr: "127.0.0.1:0", Options: opts, Handler: ha, FIPS: fips})
	if err != nil {
		return err
	}
	defer a.Close()
	b, err := node.New(node.Config{ListenAddr: "127.0.0.1:0", Options: opts, Handler: hb, FIPS: fips})
	if err != nil {
		return err
	}
	defer b.Close()

	ab, err := a.AddPeer(b.PublicIdentity(), b.Endpoint())
	if err != nil {
		return err
	}
	ba, err := b.AddPeer(a.PublicIdentity(), a.Endpoint())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "node A %s at %s\n", a.Address(), a.Endpoint())
	fmt.Fprintf(out, "node B %s at %s\n", b.Address(), b.Endpoint())

	if err := a.Handshake(b.Address()); err != nil {
		return err
	}
	if !waitFor(timeout, func() bool { return ab.EphemeralSecret() != nil && ba.EphemeralSecret() != nil }) {
		return errors.New("handshake did not complete")
	}
	fmt.Fprintf(out, "handshake: latency %d ms, remote protocol %d\n", ab.Latency(), ab.RemoteProtocolVersion())

	if !ab.Send(a.Ticks(), []byte{byte(protocol.VerbEcho), 'p', 'r', 'o', 'b', 'e'}) {
		return errors.New("echo not sent")
	}
	echoID := ab.LastMessageID()
	select {
	case inRe := <-ha.echoes:
		if inRe != echoID {
			return fmt.Errorf("echo reply for %016x, sent %016x", inRe, echoID)
		}
		fmt.Fprintf(out, "echo: reply to %016x\n", inRe)
	case <-time.After(timeout):
		return errors.New("no echo reply")
	}

	frame := make([]byte, frameSize)
	frame[0] = byte(protocol.VerbFrame)
	for i := 1; i < len(frame); i++ {
		frame[i] = byte(i % 251)
	}
	if !ab.Send(a.Ticks(), frame) {
		return errors.New("frame not sent")
	}
	select {
	case got := <-hb.frames:
		if !bytes.Equal(got, frame) {
			return errors.New("frame corrupted in transit")
		}
	case <-time.After(timeout):
		return errors.New("frame not received")
	}

	s := ab.Stats()
	fmt.Fprintf(out, "frame: %d bytes delivered, %d bytes on the wire from A, %d datagrams\n",
		len(frame), s.BytesSent, a.Host().Sent())
	fmt.Fprintln(out, "ok")
	return nil
}

func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
