// Package artnet decodes Art-Net UDP packets (opcodes Poll, Output, Nzs,
// Sync) and dispatches universe payloads to internal/control, replying to
// discovery polls with an ArtPollReply frame.
package artnet

import (
	"encoding/binary"
	"net"

	"github.com/tinic/lightkraken/internal/control"
	"github.com/tinic/lightkraken/internal/syncwatch"
)

const (
	signature = "Art-Net\x00"
	headerLen = 10
)

// Opcode is an Art-Net packet's operation code (little-endian on the wire).
type Opcode uint16

const (
	OpPoll      Opcode = 0x2000
	OpPollReply Opcode = 0x2100
	OpOutput    Opcode = 0x5000
	OpNzs       Opcode = 0x5100
	OpSync      Opcode = 0x5200
)

// Server listens for Art-Net packets and dispatches them to a Control.
type Server struct {
	ctrl     *control.Control
	watchdog *syncwatch.Watchdog

	OnPollReply func(addr *net.UDPAddr, universe uint16)

	// Send transmits a built frame to addr; wired by cmd/lightkraken to
	// the real UDP socket. LocalIP/MAC/ShortName/LongName fill in the
	// ArtPollReply body's identifying fields.
	Send      func(data []byte, addr *net.UDPAddr)
	LocalIP   net.IP
	MAC       net.HardwareAddr
	ShortName string
	LongName  string
}

// NewServer builds a Server bound to ctrl, feeding watchdog on every
// OpSync it receives.
func NewServer(ctrl *control.Control, watchdog *syncwatch.Watchdog) *Server {
	return &Server{ctrl: ctrl, watchdog: watchdog}
}

// SendPollReply builds and sends one ArtPollReply frame for universe to
// addr, used both for the immediate OpPoll reply and for systick's
// delayed poll-reply queue.
func (s *Server) SendPollReply(addr *net.UDPAddr, universe uint16) {
	if s.Send == nil {
		return
	}
	frame := BuildPollReply(s.LocalIP, s.MAC, universe, s.ShortName, s.LongName)
	s.Send(frame, addr)
}

// HandlePacket validates and dispatches one received UDP datagram. An
// invalid packet (short/bad signature/unknown opcode) is a silent no-op,
// not an error return - invalid-packet is not a protocol-layer failure per
// spec §7, it simply never reaches Control.
func (s *Server) HandlePacket(buf []byte, from *net.UDPAddr) {
	op, ok := maybeValid(buf)
	if !ok {
		return
	}

	switch op {
	case OpPoll:
		if s.OnPollReply != nil {
			s.OnPollReply(from, 0)
		}
	case OpSync:
		if s.watchdog != nil {
			s.watchdog.Feed()
		}
	case OpOutput:
		s.handleOutput(buf)
	case OpNzs:
		s.handleNzs(buf)
	}
}

func maybeValid(buf []byte) (Opcode, bool) {
	if len(buf) < headerLen || len(buf) > 530 {
		return 0, false
	}
	if string(buf[0:8]) != signature {
		return 0, false
	}
	op := Opcode(binary.LittleEndian.Uint16(buf[8:10]))
	switch op {
	case OpPoll, OpPollReply, OpOutput, OpNzs, OpSync:
		return op, true
	default:
		return 0, false
	}
}

// handleOutput decodes an OpOutput (DMX512) packet: 2-byte sequence/
// physical at [12:14], universe at [14:16] LE, 2-byte length at [16:18] BE,
// data follows at [18:].
func (s *Server) handleOutput(buf []byte) {
	if len(buf) < 18 {
		return
	}
	universe := binary.LittleEndian.Uint16(buf[14:16])
	length := int(binary.BigEndian.Uint16(buf[16:18]))
	if 18+length > len(buf) {
		return
	}
	s.ctrl.SetArtnetUniverseOutputData(universe, buf[18:18+length])
}

// handleNzs decodes an OpNzs (non-zero start-code) packet: start code at
// byte [12], universe at [14:16] LE, length at [16:18] BE, data at [18:].
// Only start-code 0 (standard DMX) payloads reach Control; any other
// start code is an out-of-scope RDM/custom payload and is silently
// dropped.
func (s *Server) handleNzs(buf []byte) {
	if len(buf) < 18 {
		return
	}
	startCode := buf[12]
	if startCode != 0 {
		return
	}
	universe := binary.LittleEndian.Uint16(buf[14:16])
	length := int(binary.BigEndian.Uint16(buf[16:18]))
	if 18+length > len(buf) {
		return
	}
	s.ctrl.SetArtnetUniverseOutputData(universe, buf[18:18+length])
}

// BuildPollReply constructs a 239-byte ArtPollReply frame advertising
// universe on the given source IP/MAC.
func BuildPollReply(srcIP net.IP, mac net.HardwareAddr, universe uint16, shortName, longName string) []byte {
	reply := make([]byte, 239)
	copy(reply[0:8], signature)
	binary.LittleEndian.PutUint16(reply[8:10], uint16(OpPollReply))

	ip4 := srcIP.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}
	copy(reply[10:14], ip4)
	binary.LittleEndian.PutUint16(reply[14:16], 6454)

	reply[16] = 0 // firmware version high
	reply[17] = 1 // firmware version low
	binary.LittleEndian.PutUint16(reply[18:20], universe)

	if len(mac) == 6 {
		copy(reply[201:207], mac)
	}

	copy(reply[26:44], []byte(padTo(shortName, 18)))
	copy(reply[44:108], []byte(padTo(longName, 64)))

	return reply
}

func padTo(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	b := make([]byte, n)
	copy(b, s)
	return string(b)
}
