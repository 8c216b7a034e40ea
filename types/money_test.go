package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"Wei", Wei(10), 10, "wei", "10 wei"},
		{"USD", USD(4900), 4900, "usd", "49.00 usd"},
		{"EUR", EUR(19900), 19900, "eur", "199.00 eur"},
		{"NewMoney normalizes", NewMoney(5, " GWEI "), 5, "gwei", "5 gwei"},
		{"Zero wei", Zero("WEI"), 0, "wei", "0 wei"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in       string
		fallback string
		want     Money
		wantErr  bool
	}{
		{"10", "wei", Wei(10), false},
		{"10wei", "", Wei(10), false},
		{"1000 usd", "wei", USD(1000), false},
		{"-5", "wei", Wei(-5), false},
		{"7", "", Wei(7), false},
		{"", "wei", Money{}, true},
		{"wei", "wei", Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in, tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	if got := Wei(100).Add(Wei(200)); !got.Equal(Wei(300)) {
		t.Errorf("Add: got %v", got)
	}
	if got := Wei(500).Subtract(Wei(200)); !got.Equal(Wei(300)) {
		t.Errorf("Subtract: got %v", got)
	}
}

func TestMoneyCheckedAdd(t *testing.T) {
	const maxInt64 = int64(^uint64(0) >> 1)

	tests := []struct {
		name string
		a, b Money
		want Money
		ok   bool
	}{
		{"small", Wei(1), Wei(2), Wei(3), true},
		{"at limit", Wei(maxInt64 - 1), Wei(1), Wei(maxInt64), true},
		{"overflow", Wei(maxInt64/2 + 1), Wei(maxInt64/2 + 1), Wei(maxInt64/2 + 1), false},
		{"negative overflow", Wei(-maxInt64), Wei(-2), Wei(-maxInt64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.CheckedAdd(tt.b)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if !got.Equal(tt.want) {
				t.Errorf("sum: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = Wei(100).Add(USD(100))
}

func TestMoneyEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Money
		equal bool
	}{
		{"Same", Wei(10), Wei(10), true},
		{"Overpay", Wei(11), Wei(10), false},
		{"Underpay", Wei(9), Wei(10), false},
		{"Other currency", USD(10), Wei(10), false},
		{"Zero", Wei(0), Zero("wei"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{USD(4900), "49.00"},
		{USD(1), "0.01"},
		{USD(-4900), "-49.00"},
		{USD(-1), "-0.01"},
		{Wei(12345), "12345"},
		{Wei(-3), "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(Wei(1000))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	expected := `{"amount":1000,"currency":"wei","display":"1000 wei"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !back.Equal(Wei(1000)) {
		t.Errorf("decoded %v", back)
	}
}
