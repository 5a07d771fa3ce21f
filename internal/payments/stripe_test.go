package payments

import "testing"

func TestCents(t *testing.T) {
	cases := map[float64]int64{
		13.75: 1375,
		0.1:   10,
		19.99: 1999,
		0:     0,
		2.5:   250,
	}
	for in, want := range cases {
		if got := Cents(in); got != want {
			t.Errorf("Cents(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestNewStripeClientDefaultsCurrency(t *testing.T) {
	if c := NewStripeClient("sk_test", ""); c.currency != "usd" {
		t.Fatalf("currency = %q", c.currency)
	}
	if c := NewStripeClient("sk_test", "eur"); c.currency != "eur" {
		t.Fatalf("currency = %q", c.currency)
	}
}
