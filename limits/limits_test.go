package limits

import (
	"errors"
	"testing"
)

// TestDefaultMTUCarriesMaxPacket verifies that PacketSizeMax always fits in
// FragmentCountMax datagrams at the default MTU.
func TestDefaultMTUCarriesMaxPacket(t *testing.T) {
	const fragmentHeaderSize = 16
	capacity := UDPDefaultMTU + (FragmentCountMax-1)*(UDPDefaultMTU-fragmentHeaderSize)
	if capacity < PacketSizeMax {
		t.Errorf("capacity at default MTU = %d, want >= %d", capacity, PacketSizeMax)
	}
}

// TestFragmentCountFitsNibble verifies the count can be packed into four bits.
func TestFragmentCountFitsNibble(t *testing.T) {
	if FragmentCountMax > 15 {
		t.Errorf("FragmentCountMax = %d does not fit in a nibble", FragmentCountMax)
	}
}

func TestValidatePacketSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{"empty", 0, ErrPacketTooShort},
		{"header only", PacketSizeMin - 1, ErrPacketTooShort},
		{"minimum", PacketSizeMin, nil},
		{"maximum", PacketSizeMax, nil},
		{"over maximum", PacketSizeMax + 1, ErrPacketTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePacketSize(tt.size)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePacketSize(%d) unexpected error: %v", tt.size, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePacketSize(%d) = %v, want %v", tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMTU(t *testing.T) {
	if err := ValidateMTU(UDPDefaultMTU); err != nil {
		t.Errorf("ValidateMTU(default) unexpected error: %v", err)
	}
	if err := ValidateMTU(MinMTU - 1); !errors.Is(err, ErrInvalidMTU) {
		t.Errorf("ValidateMTU(MinMTU-1) = %v, want ErrInvalidMTU", err)
	}
	if err := ValidateMTU(PacketSizeMax + 1); !errors.Is(err, ErrInvalidMTU) {
		t.Errorf("ValidateMTU(PacketSizeMax+1) = %v, want ErrInvalidMTU", err)
	}
}

func TestFragmentCount(t *testing.T) {
	const hdr = 16
	tests := []struct {
		name string
		size int
		mtu  int
		want int
	}{
		{"fits", 1000, 1432, 1},
		{"exactly mtu", 1432, 1432, 1},
		{"one byte over", 1433, 1432, 2},
		{"fills one fragment", 1432 + 1416, 1432, 2},
		{"spills to third", 1432 + 1417, 1432, 3},
		{"small mtu", 1000, 300, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FragmentCount(tt.size, tt.mtu, hdr); got != tt.want {
				t.Errorf("FragmentCount(%d, %d) = %d, want %d", tt.size, tt.mtu, got, tt.want)
			}
		})
	}
}

func TestValidateFragmentCount(t *testing.T) {
	if err := ValidateFragmentCount(PacketSizeMax, UDPDefaultMTU, 16); err != nil {
		t.Errorf("max packet at default MTU: unexpected error %v", err)
	}
	if err := ValidateFragmentCount(PacketSizeMax, MinMTU, 16); !errors.Is(err, ErrTooManyFragments) {
		t.Errorf("max packet at MinMTU = %v, want ErrTooManyFragments", err)
	}
}
