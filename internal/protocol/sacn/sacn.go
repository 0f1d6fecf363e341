// Package sacn decodes E1.31 (sACN) UDP packets: it authenticates the ACN
// packet identifier, extracts the universe and DMX512 data from the DMP
// layer, and periodically emits a discovery packet advertising the
// universes this device currently outputs.
package sacn

import (
	"encoding/binary"
	"net"
	"time"

	"github.com/tinic/lightkraken/internal/control"
)

const (
	rootVectorData      = 0x00000004
	framingVectorData   = 0x00000002
	dmpVectorData       = 0x02
	acnPacketIdentifier = "ASC-E1.17\x00\x00\x00"

	universeOffset  = 113
	startCodeOffset = 125
	dataOffset      = 126
)

// Server listens for sACN packets and dispatches DMX512 data to a Control.
type Server struct {
	ctrl *control.Control

	// SendDiscovery is invoked by internal/systick on its coarse cadence to
	// broadcast a universe-discovery packet; wired by cmd/lightkraken.
	SendDiscovery func()
}

// NewServer builds a Server bound to ctrl.
func NewServer(ctrl *control.Control) *Server {
	return &Server{ctrl: ctrl}
}

// HandlePacket validates and dispatches one received sACN datagram. An
// invalid packet (wrong identifier/vector/start-code) is a silent no-op,
// not a Go error, matching Art-Net's invalid-packet handling.
func (s *Server) HandlePacket(buf []byte, from *net.UDPAddr) {
	universe, data, ok := decode(buf)
	if !ok {
		return
	}
	s.ctrl.SetE131UniverseOutputData(universe, data)
}

func decode(buf []byte) (universe uint16, data []byte, ok bool) {
	if len(buf) < dataOffset+1 {
		return 0, nil, false
	}
	if string(buf[4:16]) != acnPacketIdentifier {
		return 0, nil, false
	}
	rootVector := binary.BigEndian.Uint32(buf[18:22])
	if rootVector != rootVectorData {
		return 0, nil, false
	}
	framingVector := binary.BigEndian.Uint32(buf[40:44])
	if framingVector != framingVectorData {
		return 0, nil, false
	}
	if buf[117] != dmpVectorData {
		return 0, nil, false
	}
	startCode := buf[startCodeOffset]
	if startCode != 0 {
		return 0, nil, false
	}

	universe = binary.BigEndian.Uint16(buf[universeOffset : universeOffset+2])
	propertyCount := int(binary.BigEndian.Uint16(buf[123:125]))
	length := propertyCount - 1 // exclude start code
	if length < 0 || dataOffset+length > len(buf) {
		return 0, nil, false
	}
	return universe, buf[dataOffset : dataOffset+length], true
}

// DiscoveryInterval is the default cadence for periodic universe-discovery
// broadcasts: 16384 ticks of the 1kHz systick (about 16.4s).
const DiscoveryInterval = 16384 * time.Millisecond

const (
	rootVectorExtended   = 0x00000008
	framingVectorExtDisc = 0x00000002
	universeListVector   = 0x00000001
)

// BuildDiscoveryPacket constructs a single-page E1.31 universe-discovery
// packet (ANSI E1.31 Universe Discovery Layer) advertising universes,
// identified by cid and sourceName. One page is enough for this device's
// channel count, so page and last-page are always 0.
func BuildDiscoveryPacket(universes []uint16, sourceName string, cid [16]byte) []byte {
	const rootLen = 2 + 2 + 12 + 2 + 4 + 16
	const framingLen = 2 + 4 + 64 + 4
	const discoveryHdrLen = 2 + 4 + 1 + 1

	buf := make([]byte, rootLen+framingLen+discoveryHdrLen+2*len(universes))

	binary.BigEndian.PutUint16(buf[0:2], 0x0010)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	copy(buf[4:16], acnPacketIdentifier)
	rootFlagsLen := uint16(0x7000) | uint16(len(buf)-16)
	binary.BigEndian.PutUint16(buf[16:18], rootFlagsLen)
	binary.BigEndian.PutUint32(buf[18:22], rootVectorExtended)
	copy(buf[22:38], cid[:])

	framing := buf[rootLen:]
	framingFlagsLen := uint16(0x7000) | uint16(len(framing)-2)
	binary.BigEndian.PutUint16(framing[0:2], framingFlagsLen)
	binary.BigEndian.PutUint32(framing[2:6], framingVectorExtDisc)
	copy(framing[6:70], padTo(sourceName, 64))

	disc := framing[framingLen:]
	discFlagsLen := uint16(0x7000) | uint16(len(disc)-2)
	binary.BigEndian.PutUint16(disc[0:2], discFlagsLen)
	binary.BigEndian.PutUint32(disc[2:6], universeListVector)
	disc[6] = 0 // page
	disc[7] = 0 // last page
	for i, u := range universes {
		binary.BigEndian.PutUint16(disc[discoveryHdrLen+2*i:discoveryHdrLen+2*i+2], u)
	}

	return buf
}

func padTo(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	b := make([]byte, n)
	copy(b, s)
	return string(b)
}
