package position

import (
	"testing"

	"lottery-bridge-lab/internal/domain"
)

func sampleDraw() *domain.Draw {
	return &domain.Draw{
		PeriodID: "2024-01-01",
		Tiers: [domain.TierCount]string{
			"12345",
			"67890",
			"11111,22222",
			"30001,30002,30003,30004,30005,30006",
			"4001,4002,4003,4004",
			"5001,5002,5003,5004,5005,5006",
			"601,602,603",
			"71,72,73,74",
		},
	}
}

func TestExtract_Deterministic(t *testing.T) {
	d := sampleDraw()
	a := Extract(d)
	b := Extract(d)
	if a != b {
		t.Fatal("Extract returned different vectors for the same draw")
	}
}

func TestExtract_Layout(t *testing.T) {
	v := Extract(sampleDraw())

	tests := []struct {
		name string
		want int
	}{
		{"GDB[0]", 1},
		{"GDB[4]", 5},
		{"G1[0]", 6},
		{"G2.2[0]", 2},
		{"G3.6[4]", 6},
		{"G4.1[3]", 1},
		{"G5.6[3]", 6},
		{"G6.3[2]", 3},
		{"G7.4[1]", 4},
		{"Bong(GDB[0])", 6},
		{"Bong(G7.4[1])", 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, ok := Index(tt.name)
			if !ok {
				t.Fatalf("Index(%q) failed", tt.name)
			}
			got, ok := v.Digit(i)
			if !ok {
				t.Fatalf("slot %d is null", i)
			}
			if got != tt.want {
				t.Errorf("slot %s: expected %d, got %d", tt.name, tt.want, got)
			}
		})
	}
}

func TestTierBoundaries(t *testing.T) {
	want := map[domain.Tier]int{
		domain.TierSecond:  20,
		domain.TierThird:   50,
		domain.TierFourth:  66,
		domain.TierFifth:   90,
		domain.TierSixth:   99,
		domain.TierSeventh: 107,
	}
	for tier, end := range want {
		if got := TierEnd(tier); got != end {
			t.Errorf("%s: expected end %d, got %d", tier.Code(), end, got)
		}
	}
}

func TestExtract_NullSlots(t *testing.T) {
	d := sampleDraw()
	d.Tiers[domain.TierFirst] = "45"             // short: padded
	d.Tiers[domain.TierSecond] = "1a111,22222" // non-numeric first value
	d.Tiers[domain.TierSeventh] = "123,72"       // over-long first value
	d.Tiers[domain.TierThird] = "30001"          // only one of six
	v := Extract(d)

	for i := 5; i < 8; i++ {
		if got, ok := v.Digit(i); !ok || got != 0 {
			t.Errorf("G1 slot %d: expected padded 0, got %d (ok=%v)", i, got, ok)
		}
	}
	if got, _ := v.Digit(9); got != 5 {
		t.Errorf("G1[4]: expected 5, got %d", got)
	}
	for i := TierStart(domain.TierSecond); i < TierStart(domain.TierSecond)+5; i++ {
		if _, ok := v.Digit(i); ok {
			t.Errorf("G2.1 slot %d should be null", i)
		}
		if _, ok := v.Digit(Canonical + i); ok {
			t.Errorf("mirror of G2.1 slot %d should be null", i)
		}
	}
	if _, ok := v.Digit(TierStart(domain.TierSecond) + 5); !ok {
		t.Error("G2.2 should still be extracted")
	}
	for i := TierStart(domain.TierThird) + 5; i < TierEnd(domain.TierThird); i++ {
		if _, ok := v.Digit(i); ok {
			t.Errorf("missing G3 slot %d should be null", i)
		}
	}
	g7 := TierStart(domain.TierSeventh)
	if _, ok := v.Digit(g7); ok {
		t.Error("over-long G7.1 should be null")
	}
	if got, _ := v.Digit(g7 + 2); got != 7 {
		t.Errorf("G7.2[0]: expected 7, got %d", got)
	}
}

func TestExtract_EmptyGroupKeepsPosition(t *testing.T) {
	d := sampleDraw()
	d.Tiers[domain.TierSecond] = ",54321"
	d.Tiers[domain.TierSeventh] = "71,,73,74"
	v := Extract(d)

	g2 := TierStart(domain.TierSecond)
	for i := g2; i < g2+5; i++ {
		if _, ok := v.Digit(i); ok {
			t.Errorf("G2.1 slot %d should be null", i)
		}
	}
	for k, want := range []int{5, 4, 3, 2, 1} {
		if got, ok := v.Digit(g2 + 5 + k); !ok || got != want {
			t.Errorf("G2.2[%d]: expected %d, got %d (ok=%v)", k, want, got, ok)
		}
	}

	g7 := TierStart(domain.TierSeventh)
	if _, ok := v.Digit(g7 + 2); ok {
		t.Error("G7.2 should be null")
	}
	if got, _ := v.Digit(g7 + 4); got != 7 {
		t.Errorf("G7.3[0]: expected 7, got %d", got)
	}

	m := Memory(&v)
	if _, ok := m.Value(2); ok {
		t.Error("memory loto G2.1 should be unknown")
	}
	if got, ok := m.Value(3); !ok || got != 21 {
		t.Errorf("memory loto G2.2: expected 21, got %d (ok=%v)", got, ok)
	}
	if _, ok := LotoSet(d)["21"]; !ok {
		t.Error("loto 21 missing from loto set")
	}
}

func TestExtract_NilDraw(t *testing.T) {
	v := Extract(nil)
	for i := 0; i < Size; i++ {
		if _, ok := v.Digit(i); ok {
			t.Fatalf("slot %d should be null", i)
		}
	}
}

func TestMirror_Involution(t *testing.T) {
	for d := 0; d <= 9; d++ {
		if got := Mirror(Mirror(d)); got != d {
			t.Errorf("Mirror(Mirror(%d)) = %d", d, got)
		}
		if Mirror(d) == d {
			t.Errorf("Mirror(%d) should differ from %d", d, d)
		}
	}
}

func TestName_RoundTrip(t *testing.T) {
	seen := make(map[string]bool, Size)
	for i := 0; i < Size; i++ {
		name, ok := Name(i)
		if !ok {
			t.Fatalf("Name(%d) failed", i)
		}
		if seen[name] {
			t.Fatalf("duplicate name %q", name)
		}
		seen[name] = true

		back, ok := Index(name)
		if !ok || back != i {
			t.Errorf("Index(Name(%d)=%q) = %d, %v", i, name, back, ok)
		}
	}
}

func TestName_Examples(t *testing.T) {
	tests := []struct {
		index int
		name  string
	}{
		{0, "GDB[0]"},
		{8, "G1[3]"},
		{24, "G3.1[4]"},
		{29, "G3.2[4]"},
		{106, "G7.4[1]"},
		{115, "Bong(G1[3])"},
	}
	for _, tt := range tests {
		if got, _ := Name(tt.index); got != tt.name {
			t.Errorf("Name(%d): expected %q, got %q", tt.index, tt.name, got)
		}
	}
}

func TestIndex_Unresolvable(t *testing.T) {
	names := []string{"", "G8[0]", "G3.7[0]", "GDB[5]", "G7.1[2]", "Bong(Bong(GDB[0]))", "Bong(GDB[0]", "gdb[0]"}
	for _, name := range names {
		if i, ok := Index(name); ok {
			t.Errorf("Index(%q) should fail, got %d", name, i)
		}
	}
	if _, ok := Name(Size); ok {
		t.Error("Name(Size) should fail")
	}
	if _, ok := Name(-1); ok {
		t.Error("Name(-1) should fail")
	}
}

func TestIndex_OptionalGroup(t *testing.T) {
	a, _ := Index("G1[3]")
	b, ok := Index("G1.1[3]")
	if !ok || a != b {
		t.Errorf("G1.1[3] should resolve like G1[3]: %d vs %d", b, a)
	}
}

func TestLotoSetAndDe(t *testing.T) {
	d := sampleDraw()
	set := LotoSet(d)
	for _, n := range []string{"45", "90", "11", "22", "01", "06", "04", "03", "71", "74"} {
		if _, ok := set[n]; !ok {
			t.Errorf("expected %s in loto set", n)
		}
	}
	if _, ok := set["12"]; ok {
		t.Error("12 is not a last-two-digit value")
	}
	if got := De(d); got != "45" {
		t.Errorf("expected đề 45, got %q", got)
	}

	d.Tiers[domain.TierSpecial] = ""
	if got := De(d); got != "" {
		t.Errorf("expected empty đề, got %q", got)
	}
}

func TestLotos_KeepsRepeats(t *testing.T) {
	lotos := Lotos(sampleDraw())
	if len(lotos) != 27 {
		t.Fatalf("expected 27 lotos, got %d", len(lotos))
	}
	count := 0
	for _, l := range lotos {
		if l == "01" {
			count++
		}
	}
	// 30001, 4001, 5001, 601
	if count != 4 {
		t.Errorf("expected 01 four times, got %d", count)
	}
	if Lotos(nil) != nil {
		t.Error("nil draw has no lotos")
	}
}

func TestMemory(t *testing.T) {
	if MemoryNames[0] != "GDB" || MemoryNames[2] != "G2.1" || MemoryNames[26] != "G7.4" {
		t.Fatalf("unexpected memory names: %v", MemoryNames)
	}

	v := Extract(sampleDraw())
	m := Memory(&v)

	tests := []struct {
		idx  int
		want int
	}{
		{0, 45},
		{1, 90},
		{4, 1},
		{26, 74},
	}
	for _, tt := range tests {
		got, ok := m.Value(tt.idx)
		if !ok || got != tt.want {
			t.Errorf("memory %s: expected %d, got %d (ok=%v)", MemoryNames[tt.idx], tt.want, got, ok)
		}
	}
}

func TestSeries_Slice(t *testing.T) {
	draws := make([]domain.Draw, 5)
	for i := range draws {
		draws[i] = *sampleDraw()
		draws[i].PeriodID = string(rune('a' + i))
	}
	s := NewSeries(draws)
	if s.Len() != 5 {
		t.Fatalf("expected 5 draws, got %d", s.Len())
	}

	sub := s.Slice(1, 4)
	if sub.Len() != 3 || sub.PeriodID(0) != "b" || sub.PeriodID(2) != "d" {
		t.Errorf("unexpected slice: len=%d", sub.Len())
	}
	if s.Tail(2).PeriodID(0) != "d" {
		t.Errorf("unexpected tail start %q", s.Tail(2).PeriodID(0))
	}
	if s.Tail(10) != s {
		t.Error("Tail larger than the series should return the series")
	}
	if got := s.Outcome(0).De; got != "45" {
		t.Errorf("expected outcome đề 45, got %q", got)
	}
	if !s.Complete(0) {
		t.Error("sample draw should be complete")
	}
}
