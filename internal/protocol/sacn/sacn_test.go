package sacn

import (
	"encoding/binary"
	"testing"
)

func buildValidPacket(universe uint16, data []byte) []byte {
	buf := make([]byte, dataOffset+len(data))
	copy(buf[4:16], acnPacketIdentifier)
	binary.BigEndian.PutUint32(buf[18:22], rootVectorData)
	binary.BigEndian.PutUint32(buf[40:44], framingVectorData)
	buf[117] = dmpVectorData
	binary.BigEndian.PutUint16(buf[universeOffset:universeOffset+2], universe)
	binary.BigEndian.PutUint16(buf[123:125], uint16(len(data)+1))
	buf[startCodeOffset] = 0
	copy(buf[dataOffset:], data)
	return buf
}

func TestDecodeValidPacket(t *testing.T) {
	buf := buildValidPacket(5, []byte{10, 20, 30})
	universe, data, ok := decode(buf)
	if !ok {
		t.Fatal("expected valid packet to decode")
	}
	if universe != 5 {
		t.Errorf("expected universe 5, got %d", universe)
	}
	if len(data) != 3 || data[0] != 10 {
		t.Errorf("expected data [10,20,30], got %v", data)
	}
}

func TestDecodeRejectsBadIdentifier(t *testing.T) {
	buf := buildValidPacket(1, []byte{1})
	buf[4] = 'X'
	if _, _, ok := decode(buf); ok {
		t.Error("expected bad ACN identifier to be rejected")
	}
}

func TestDecodeRejectsNonZeroStartCode(t *testing.T) {
	buf := buildValidPacket(1, []byte{1})
	buf[startCodeOffset] = 0xCC
	if _, _, ok := decode(buf); ok {
		t.Error("expected non-zero start code to be rejected")
	}
}

func TestDecodeRejectsShortPacket(t *testing.T) {
	if _, _, ok := decode([]byte{1, 2, 3}); ok {
		t.Error("expected short packet to be rejected")
	}
}
