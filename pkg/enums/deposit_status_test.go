package enums

import "testing"

func TestParseDepositStatus(t *testing.T) {
	for _, raw := range []string{"pending", "confirmed", "rejected"} {
		status, err := ParseDepositStatus(raw)
		if err != nil {
			t.Fatalf("ParseDepositStatus(%q): %v", raw, err)
		}
		if !status.IsValid() {
			t.Fatalf("expected %q to be valid", raw)
		}
	}
	if _, err := ParseDepositStatus("settled"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if DepositStatus("CONFIRMED").IsValid() {
		t.Fatal("status matching is case sensitive")
	}
}
