package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNumberKeepsRawToken(t *testing.T) {
	var txs []Transaction
	in := `[{"id":1,"amount":1500},{"id":2,"amount":"100"},{"id":3,"amount":null}]`
	if err := json.Unmarshal([]byte(in), &txs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := []Number{txs[0].Amount, txs[1].Amount, txs[2].Amount}
	if diff := cmp.Diff([]Number{"1500", `"100"`, ""}, got); diff != "" {
		t.Fatalf("unexpected amounts (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(txs[1])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Transaction
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal again: %v", err)
	}
	if back.Amount != `"100"` {
		t.Fatalf("quoted amount lost on round-trip, got %s", back.Amount)
	}
}
