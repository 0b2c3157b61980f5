package stash

import (
	"encoding/json"
	"testing"
)

func TestTransferItemsStates(t *testing.T) {
	cases := []struct {
		name      string
		have      int
		amount    int
		refuseDst bool
		refuseSrc bool
		want      LegState
		wantSrc   int
		wantDst   int
	}{
		{"moved", 10, 10, false, false, LegAdded, 0, 10},
		{"insufficient", 3, 10, false, false, LegRemovalFailed, 3, 0},
		{"zero amount", 3, 0, false, false, LegRemovalFailed, 3, 0},
		{"rolled back", 10, 10, true, false, LegRolledBack, 10, 0},
		{"lost", 10, 10, true, true, LegLost, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newFakeHost()
			src := h.newInventory("src", 4, st("ore", tc.have))
			dst := h.newInventory("dst", 4)
			h.refuseAdd["dst"] = tc.refuseDst
			h.refuseAdd["src"] = tc.refuseSrc

			got := TransferItems(h, "src", "dst", "ore", tc.amount)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if !got.Terminal() {
				t.Fatalf("expected terminal state")
			}
			if src.Count("ore") != tc.wantSrc || dst.Count("ore") != tc.wantDst {
				t.Fatalf("expected src=%d dst=%d, got src=%d dst=%d", tc.wantSrc, tc.wantDst, src.Count("ore"), dst.Count("ore"))
			}
		})
	}
}

func TestLegStateJSON(t *testing.T) {
	leg := Leg{Item: "wood", Amount: 4, State: LegRolledBack}
	b, err := json.Marshal(leg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Leg
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.State != LegRolledBack {
		t.Fatalf("expected RolledBack, got %s", out.State)
	}
	var s LegState
	if err := s.UnmarshalText([]byte("Bogus")); err == nil {
		t.Fatalf("expected error for unknown state")
	}
	if LegPending.Terminal() || LegRemoved.Terminal() {
		t.Fatalf("pending and removed are not terminal")
	}
}
