package ring

import "testing"

func TestSpaceHashDeterministic(t *testing.T) {
	s := NewSpace(160)
	a := s.Hash("node-a")
	b := s.Hash("node-a")
	if !a.Equal(b) {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
}

func TestSpaceStart(t *testing.T) {
	s := NewSpace(8)
	self := s.FromUint64(10)
	got := s.Start(self, 2) // 10 + 4 = 14
	want := s.FromUint64(14)
	if !got.Equal(want) {
		t.Fatalf("Start(10,2) = %s, want %s", got, want)
	}
}

func TestSpaceStartWraps(t *testing.T) {
	s := NewSpace(4) // modulus 16
	self := s.FromUint64(15)
	got := s.Start(self, 1) // 15 + 2 = 17 mod 16 = 1
	want := s.FromUint64(1)
	if !got.Equal(want) {
		t.Fatalf("Start wrap = %s, want %s", got, want)
	}
}

func TestInRangeNoWrap(t *testing.T) {
	s := NewSpace(8)
	start, end := s.FromUint64(10), s.FromUint64(20)
	cases := []struct {
		v    uint64
		want bool
	}{
		{10, false}, {11, true}, {19, true}, {20, false}, {5, false},
	}
	for _, c := range cases {
		got := s.InRange(s.FromUint64(c.v), start, end, false, false)
		if got != c.want {
			t.Errorf("InRange(%d, (10,20)) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestInRangeWraps(t *testing.T) {
	s := NewSpace(4) // modulus 16
	start, end := s.FromUint64(14), s.FromUint64(2)
	cases := []struct {
		v    uint64
		want bool
	}{
		{15, true}, {0, true}, {1, true}, {2, false}, {14, false}, {8, false},
	}
	for _, c := range cases {
		got := s.InRange(s.FromUint64(c.v), start, end, false, false)
		if got != c.want {
			t.Errorf("InRange(%d, (14,2)) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestInRangeInclusiveEndpoints(t *testing.T) {
	s := NewSpace(8)
	start, end := s.FromUint64(10), s.FromUint64(20)
	if !s.InRange(start, start, end, true, false) {
		t.Errorf("inclusive start should include start")
	}
	if !s.InRange(end, start, end, false, true) {
		t.Errorf("inclusive end should include end")
	}
}

func TestInRangeEmptyWhenEqual(t *testing.T) {
	s := NewSpace(8)
	p := s.FromUint64(5)
	if s.InRange(s.FromUint64(6), p, p, false, false) {
		t.Errorf("degenerate exclusive interval should be empty")
	}
	if !s.InRange(s.FromUint64(6), p, p, true, false) {
		t.Errorf("degenerate interval with an inclusive endpoint should be the whole ring")
	}
}

func TestDistance(t *testing.T) {
	s := NewSpace(8)
	d := s.Distance(s.FromUint64(250), s.FromUint64(10))
	if d.Uint64() != 16 { // 256 - 250 + 10
		t.Fatalf("Distance wraps wrong: got %s", d)
	}
}

func TestFromStringRoundTrip(t *testing.T) {
	s := NewSpace(160)
	id := s.Hash("round-trip")
	parsed, err := s.FromString(id.String())
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if !id.Equal(parsed) {
		t.Fatalf("round trip mismatch: %s vs %s", id, parsed)
	}
}

func TestFromStringInvalid(t *testing.T) {
	s := NewSpace(160)
	if _, err := s.FromString("not-a-number"); err == nil {
		t.Fatalf("expected error for invalid decimal id")
	}
}

func TestHexRoundTrip(t *testing.T) {
	s := NewSpace(16)
	id := s.FromUint64(4660) // 0x1234
	h := id.Hex(s)
	parsed, err := s.FromHex(h)
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	if !id.Equal(parsed) {
		t.Fatalf("hex round trip mismatch: %s vs %s", id, parsed)
	}
}
