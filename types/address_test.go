package types

import (
	"encoding/json"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"prefixed", "0x00000000000000000000000000000000000000aa", "0x00000000000000000000000000000000000000aa", false},
		{"bare", "00000000000000000000000000000000000000BB", "0x00000000000000000000000000000000000000bb", false},
		{"too short", "0x1234", "", true},
		{"bad digits", "0xzz000000000000000000000000000000000000aa", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Hex() != tt.want {
				t.Errorf("got %s, want %s", got.Hex(), tt.want)
			}
		})
	}
}

func TestAddressZero(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Error("ZeroAddress should be zero")
	}
	if BytesToAddress([]byte{1}).IsZero() {
		t.Error("non-zero address reported zero")
	}
	if got := BytesToAddress([]byte{0xab}).Hex(); got != "0x00000000000000000000000000000000000000ab" {
		t.Errorf("BytesToAddress: got %s", got)
	}
}

func TestAddressJSON(t *testing.T) {
	type holder struct {
		Who Address `json:"who"`
	}

	in := holder{Who: BytesToAddress([]byte{0x01, 0x02})}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"who":"0x0000000000000000000000000000000000000102"}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var out holder
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Who != in.Who {
		t.Errorf("round trip: got %s want %s", out.Who, in.Who)
	}
}

func TestAddressScan(t *testing.T) {
	want := BytesToAddress([]byte{0x42})

	var a Address
	if err := a.Scan(want.Hex()); err != nil {
		t.Fatalf("Scan(string): %v", err)
	}
	if a != want {
		t.Errorf("got %s", a)
	}

	if err := a.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !a.IsZero() {
		t.Error("Scan(nil) should reset to zero")
	}

	if err := a.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
