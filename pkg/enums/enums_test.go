package enums

import "testing"

func TestParseCadence(t *testing.T) {
	for _, c := range Cadences() {
		got, err := ParseCadence(string(c))
		if err != nil {
			t.Fatalf("parse %q: %v", c, err)
		}
		if got != c {
			t.Fatalf("expected %q got %q", c, got)
		}
	}
	if _, err := ParseCadence("yearly"); err == nil {
		t.Fatal("expected error for unknown cadence")
	}
}

func TestCadencesOrder(t *testing.T) {
	got := Cadences()
	want := []Cadence{CadenceMonthly, CadenceWeekly, CadenceQuarterly, CadenceUnknown}
	if len(got) != len(want) {
		t.Fatalf("expected %d cadences, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %q got %q", i, want[i], got[i])
		}
	}
	got[0] = CadenceUnknown
	if Cadences()[0] != CadenceMonthly {
		t.Fatal("internal cadence slice leaked")
	}
}

func TestRuleEnums(t *testing.T) {
	if !RuleOpContains.IsValid() || RuleOp("startswith").IsValid() {
		t.Fatal("unexpected rule op validity")
	}
	if _, err := ParseRuleActionType("add_tag"); err != nil {
		t.Fatalf("parse action: %v", err)
	}
	if _, err := ParseRuleActionType("delete"); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if _, err := ParseCandidateStatus("candidate"); err != nil {
		t.Fatalf("parse status: %v", err)
	}
}

func TestAccountEnums(t *testing.T) {
	for _, raw := range []string{"checking", "savings", "credit_card"} {
		got, err := ParseAccountType(raw)
		if err != nil || !got.IsValid() {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	if _, err := ParseAccountType("brokerage"); err == nil {
		t.Fatal("expected error for unknown account type")
	}
	if got, err := ParseTransactionType("credit"); err != nil || got != TransactionTypeCredit {
		t.Fatalf("parse credit: %v %v", got, err)
	}
	if _, err := ParseTransactionType("refund"); err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
}
