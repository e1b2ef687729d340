package contracts

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSortSignals(t *testing.T) {
	signals := []*Signal{
		{Symbol: "MSFT", AsOfDate: date("2019-01-31")},
		{Symbol: "AAPL", AsOfDate: date("2019-01-31")},
		{Symbol: "UAL", AsOfDate: date("2019-01-16")},
		{Symbol: "NVDA", AsOfDate: date("2019-02-15")},
	}

	SortSignals(signals)

	wantOrder := []string{"UAL", "AAPL", "MSFT", "NVDA"}
	for i, want := range wantOrder {
		if signals[i].Symbol != want {
			t.Errorf("position %d: got %s, want %s", i, signals[i].Symbol, want)
		}
	}
}

func TestSortSignals_Stable(t *testing.T) {
	// Same inputs must always produce the same order
	build := func() []*Signal {
		return []*Signal{
			{Symbol: "B", AsOfDate: date("2020-03-02")},
			{Symbol: "A", AsOfDate: date("2020-03-02")},
			{Symbol: "C", AsOfDate: date("2020-03-01")},
		}
	}

	a := build()
	b := build()
	SortSignals(a)
	SortSignals(b)

	for i := range a {
		if a[i].Symbol != b[i].Symbol {
			t.Fatalf("sort not deterministic at %d: %s vs %s", i, a[i].Symbol, b[i].Symbol)
		}
	}
}

func TestSignal_Key(t *testing.T) {
	s := &Signal{Symbol: "UAL", Year: 2019, Quarter: 1}
	key := s.Key()

	if key != (PositionKey{Symbol: "UAL", Year: 2019, Quarter: 1}) {
		t.Errorf("unexpected key: %+v", key)
	}

	if key.String() != "UAL:2019Q1" {
		t.Errorf("String() = %q, want UAL:2019Q1", key.String())
	}
}

func TestSignal_HasHardVeto(t *testing.T) {
	clean := &Signal{Symbol: "AAPL"}
	if clean.HasHardVeto() {
		t.Error("expected no hard veto")
	}

	vetoed := &Signal{Symbol: "AAPL", HardVetoes: []HardVeto{VetoGoingConcern}}
	if !vetoed.HasHardVeto() {
		t.Error("expected hard veto")
	}
}
