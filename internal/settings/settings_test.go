package settings

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(dir, "settings.jsonl"), 4, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetString(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	if err := s.Put("device_name", StringValue("lightkraken")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok := s.Get("device_name", TypeString)
	if !ok || v.String != "lightkraken" {
		t.Fatalf("Get: got %+v, ok=%v", v, ok)
	}
}

func TestPutGetEveryType(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	cases := []Value{
		StringValue("x"),
		BoolValue(true),
		NumberValue(3.5),
		NullValue(),
		IPValue("10.0.0.1"),
		ObjectValue(`{"a":1}`),
		NumberVectorValue([]float64{1, 2, 3}),
		Number2DVectorValue([][]float64{{1, 2}, {3, 4}}),
		StringVectorValue([]string{"a", "b"}),
		BoolVectorValue([]bool{true, false}),
	}
	for _, v := range cases {
		if err := s.Put("k", v); err != nil {
			t.Fatalf("Put(%v): %v", v.Type, err)
		}
		got, ok := s.Get("k", v.Type)
		if !ok {
			t.Fatalf("Get(%v): not found", v.Type)
		}
		if got.Type != v.Type {
			t.Fatalf("Get(%v): type mismatch %v", v.Type, got.Type)
		}
	}
}

func TestPutEmptyKeyIsRealError(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	if err := s.Put("", StringValue("x")); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestDeleteRemovesValue(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	_ = s.Put("temp", BoolValue(true))
	if err := s.Delete("temp", TypeBool); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get("temp", TypeBool); ok {
		t.Fatal("expected value to be gone after Delete")
	}
}

func TestJournalPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.jsonl")

	s1, err := Open(path, 64, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.Put("survives", NumberValue(42)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s1.Close()

	s2, err := Open(path, 64, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	v, ok := s2.Get("survives", TypeNumber)
	if !ok || v.Number != 42 {
		t.Fatalf("expected 42 to survive reopen, got %+v ok=%v", v, ok)
	}
}

func TestDeleteTombstonePersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.jsonl")

	s1, err := Open(path, 64, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s1.Put("gone", BoolValue(true))
	_ = s1.Delete("gone", TypeBool)
	s1.Close()

	s2, err := Open(path, 64, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, ok := s2.Get("gone", TypeBool); ok {
		t.Fatal("expected tombstone to survive reopen")
	}
}

func TestIncrementBootCountMonotonic(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	first, err := s.IncrementBootCount()
	if err != nil {
		t.Fatalf("IncrementBootCount: %v", err)
	}
	second, err := s.IncrementBootCount()
	if err != nil {
		t.Fatalf("IncrementBootCount: %v", err)
	}
	if second != first+1 {
		t.Fatalf("expected monotonic increment, got %v then %v", first, second)
	}
}

func TestCompactionReducesJournalOnOverflow(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	for i := 0; i < 200; i++ {
		if err := s.Put("k", NumberValue(float64(i))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	used, capacity := s.JournalUsage()
	if used >= capacity*50 {
		t.Fatalf("expected compaction to bound journal growth, used=%d capacity=%d", used, capacity)
	}
	v, ok := s.Get("k", TypeNumber)
	if !ok || v.Number != 199 {
		t.Fatalf("expected latest value to survive compaction, got %+v ok=%v", v, ok)
	}
}

func TestApplyDefaultsSeedsBootCountAndAddresses(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	if v, ok := s.Get("boot_count", TypeNumber); !ok || v.Number != 0 {
		t.Fatalf("expected default boot_count=0, got %+v ok=%v", v, ok)
	}
	if v, ok := s.Get("last_ipv4", TypeIP); !ok || v.IP != "0.0.0.0" {
		t.Fatalf("expected default last_ipv4, got %+v ok=%v", v, ok)
	}
}

func TestDumpJSONAndValueFromJSONRoundTrip(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	_ = s.Put("name", StringValue("panel-1"))
	_ = s.Put("brightness", NumberValue(0.75))

	dump, err := s.DumpJSON()
	if err != nil {
		t.Fatalf("DumpJSON: %v", err)
	}

	raw, err := jsonValue(StringValue("panel-1"))
	if err != nil {
		t.Fatalf("jsonValue: %v", err)
	}
	back, err := ValueFromJSON(TypeString, raw)
	if err != nil {
		t.Fatalf("ValueFromJSON: %v", err)
	}
	if back.String != "panel-1" {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if len(dump) == 0 {
		t.Fatal("expected non-empty dump")
	}
}

func TestValueFromJSONRejectsMismatchedBody(t *testing.T) {
	if _, err := ValueFromJSON(TypeNumber, []byte(`"not a number"`)); err == nil {
		t.Fatal("expected error decoding string body as number")
	}
}

func TestKeysListsStoredKeys(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	_ = s.Put("a", StringValue("1"))
	_ = s.Put("b", NumberValue(2))
	keys := s.Keys()
	found := map[string]bool{}
	for _, k := range keys {
		found[k] = true
	}
	if !found["a@s"] || !found["b@n"] {
		t.Fatalf("expected a@s and b@n in keys, got %v", keys)
	}
}
