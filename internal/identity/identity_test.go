package identity

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestBalanceIDReferenceDigest(t *testing.T) {
	got := BalanceID("65478", "P1", "B1", date(2025, time.March, 1))
	const want = "e0a906368e7651114cf44dc7e0cc73a2d000e77be6bf676b1675b6cebb97349a"
	if got != want {
		t.Fatalf("BalanceID = %s, want %s", got, want)
	}
}

func TestBalanceIDDeterministic(t *testing.T) {
	a := BalanceID("65478", "P1", "B1", date(2025, time.March, 1))
	b := BalanceID("65478", "P1", "B1", date(2025, time.March, 1))
	if a != b {
		t.Fatalf("identifiers differ across calls: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("identifier length = %d, want 64", len(a))
	}
}

func TestBalanceIDIgnoresTimeOfDay(t *testing.T) {
	noon := time.Date(2025, time.March, 1, 12, 30, 0, 0, time.UTC)
	if BalanceID("1", "P", "B", &noon) != BalanceID("1", "P", "B", date(2025, time.March, 1)) {
		t.Fatal("time of day must not influence the identifier")
	}
}

func TestBalanceIDChangesWithEachField(t *testing.T) {
	base := BalanceID("65478", "P1", "B1", date(2025, time.March, 1))
	variants := map[string]string{
		"warehouse": BalanceID("65479", "P1", "B1", date(2025, time.March, 1)),
		"product":   BalanceID("65478", "P2", "B1", date(2025, time.March, 1)),
		"batch":     BalanceID("65478", "P1", "B2", date(2025, time.March, 1)),
		"date":      BalanceID("65478", "P1", "B1", date(2025, time.March, 2)),
		"no date":   BalanceID("65478", "P1", "B1", nil),
	}
	for field, id := range variants {
		if id == base {
			t.Fatalf("changing %s did not change the identifier", field)
		}
	}

	if got := BalanceID("65478", "P1", "B1", date(2025, time.March, 2)); got != "3ccc1d1e59349745855a10ab63804de30fff8a0507250130c78d6995886898bb" {
		t.Fatalf("unexpected digest for next day: %s", got)
	}
}

func TestBalanceIDAllMissing(t *testing.T) {
	const want = "be5be69f55e91af25e54ecc2154d4da359b67b3b27e25f5cc0b3ff54eb74dff3"
	if got := BalanceID("", "", "", nil); got != want {
		t.Fatalf("BalanceID of empty key = %s, want %s", got, want)
	}
}
