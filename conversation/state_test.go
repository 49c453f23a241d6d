package conversation

import "testing"

func TestShouldSummarize(t *testing.T) {
	cases := []struct {
		turnCount int
		every     int
		want      bool
	}{
		{0, 20, false},
		{19, 20, false},
		{20, 20, true},
		{40, 20, true},
		{21, 20, false},
		{5, 0, false}, // default 20 applies
		{20, 0, true},
	}
	for _, tc := range cases {
		if got := ShouldSummarize(tc.turnCount, tc.every); got != tc.want {
			t.Errorf("ShouldSummarize(%d, %d) = %v, want %v", tc.turnCount, tc.every, got, tc.want)
		}
	}
}

func TestState_AppendFact(t *testing.T) {
	s := NewState("t1", "c1", "cust1", "+15551234567", Persona{BotName: "Aria"})
	s.AppendFact("prefers morning appointments", 0.9, "msg-1")
	s.AppendFact("vegetarian", 0.8, "msg-2")

	if len(s.KeyFacts) != 2 {
		t.Fatalf("expected 2 key facts, got %d", len(s.KeyFacts))
	}
	if s.KeyFacts[0].Fact != "prefers morning appointments" {
		t.Errorf("facts must append in order, got %q first", s.KeyFacts[0].Fact)
	}
}
