package protocol

import (
	"testing"

	"github.com/opd-ai/vl1/limits"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPacket(size int) []byte {
	hdr := testHeader()
	hdr.Flags = hdr.Flags.WithCipher(CipherAesGmacSiv).WithFragmented(true)
	p := hdr.AppendTo(make([]byte, 0, size))
	for len(p) < size {
		p = append(p, byte(len(p)*31))
	}
	return p
}

func collect(out *[][]byte) EmitFunc {
	return func(d []byte) bool {
		*out = append(*out, append([]byte(nil), d...))
		return true
	}
}

func TestSendFragmentedCount(t *testing.T) {
	const mtu = 300
	per := mtu - FragmentHeaderSize
	tests := []struct {
		name string
		size int
	}{
		{"below mtu", 100},
		{"exactly mtu", mtu},
		{"one over", mtu + 1},
		{"one full fragment", mtu + per},
		{"partial second", mtu + per + 1},
		{"max", mtu + 7*per},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet := testPacket(tt.size)
			var got [][]byte
			require.True(t, SendFragmented(packet, mtu, collect(&got)))

			want := 1
			if tt.size > mtu {
				want = 1 + (tt.size-mtu+per-1)/per
			}
			require.Len(t, got, want)

			rebuilt := append([]byte(nil), got[0]...)
			for i, d := range got[1:] {
				fh, err := ParseFragmentHeader(d)
				require.NoError(t, err)
				assert.Equal(t, uint8(want), fh.Total)
				assert.Equal(t, uint8(i+1), fh.Index)
				assert.Equal(t, packet[0:8], fh.ID[:])
				assert.Equal(t, packet[8:13], fh.Destination[:])
				assert.LessOrEqual(t, len(d), mtu)
				rebuilt = append(rebuilt, d[FragmentHeaderSize:]...)
			}
			assert.Equal(t, packet, rebuilt)
		})
	}
}

func TestSendFragmentedEmitFailureAborts(t *testing.T) {
	const mtu = 300
	packet := testPacket(mtu * 3)

	hook := logtest.NewGlobal()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer func() {
		logrus.SetLevel(level)
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	}()

	calls := 0
	ok := SendFragmented(packet, mtu, func([]byte) bool {
		calls++
		return calls < 2
	})
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Fragment not sent, aborting", hook.LastEntry().Message)
	assert.Equal(t, 1, hook.LastEntry().Data["index"])

	calls = 0
	ok = SendFragmented(packet, mtu, func([]byte) bool {
		calls++
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestSendFragmentedTooManyPanics(t *testing.T) {
	const mtu = 300
	packet := testPacket(mtu + 7*(mtu-FragmentHeaderSize) + 1)
	require.Equal(t, limits.FragmentCountMax+1, limits.FragmentCount(len(packet), mtu, FragmentHeaderSize))

	emitted := 0
	assert.Panics(t, func() {
		SendFragmented(packet, mtu, func([]byte) bool { emitted++; return true })
	})
	assert.Zero(t, emitted, "nothing is sent for an oversized packet")
}
