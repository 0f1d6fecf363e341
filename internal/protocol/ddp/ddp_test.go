package ddp

import "testing"

func buildPacket(query bool, data []byte) []byte {
	buf := make([]byte, 10+len(data))
	buf[0] = 1 << 6
	if query {
		buf[0] |= flagQuery
	}
	buf[8] = byte(len(data) >> 8)
	buf[9] = byte(len(data))
	copy(buf[10:], data)
	return buf
}

func TestMaybeValidData(t *testing.T) {
	buf := buildPacket(false, []byte{1, 2, 3})
	if MaybeValid(buf) != PacketData {
		t.Error("expected PacketData")
	}
}

func TestMaybeValidQuery(t *testing.T) {
	buf := buildPacket(true, nil)
	if MaybeValid(buf) != PacketQuery {
		t.Error("expected PacketQuery")
	}
}

func TestMaybeValidRejectsBadVersion(t *testing.T) {
	buf := buildPacket(false, []byte{1})
	buf[0] = 0
	if MaybeValid(buf) != PacketInvalid {
		t.Error("expected PacketInvalid for bad version bits")
	}
}

func TestMaybeValidRejectsLengthMismatch(t *testing.T) {
	buf := buildPacket(false, []byte{1, 2, 3})
	buf[9] = 99
	if MaybeValid(buf) != PacketInvalid {
		t.Error("expected PacketInvalid for length mismatch")
	}
}

func TestDispatchReturnsNotWiredForValidData(t *testing.T) {
	buf := buildPacket(false, []byte{1, 2, 3})
	_, err := Dispatch(buf)
	if err != ErrNotWired {
		t.Errorf("expected ErrNotWired, got %v", err)
	}
}

func TestDispatchReturnsInvalidForBadPacket(t *testing.T) {
	_, err := Dispatch([]byte{0, 0})
	if err != ErrInvalid {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
