package delivery

import (
	"testing"

	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		location string
		wantTier Tier
		wantFee  money.Money
	}{
		{"metro city is free", "Accra", TierFree, 0},
		{"metro match is case-insensitive", "ACCRA", TierFree, 0},
		{"metro substring with suburb", "Osu, Accra", TierFree, 0},
		{"regional capital", "Sunyani", TierRegional, 2500},
		{"regional capital lowercased", "tamale", TierRegional, 2500},
		{"short name matches whole token only", "Ho", TierRegional, 2500},
		{"short name does not match inside words", "Akosombo warehouse", TierRemote, 4000},
		{"unmatched town is remote", "Nandom", TierRemote, 4000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tier, fee, err := Quote(tc.location)
			if err != nil {
				t.Fatalf("Quote(%q) unexpected error: %v", tc.location, err)
			}
			if tier != tc.wantTier {
				t.Fatalf("Quote(%q) tier = %s, want %s", tc.location, tier, tc.wantTier)
			}
			if fee != tc.wantFee {
				t.Fatalf("Quote(%q) fee = %d, want %d", tc.location, fee, tc.wantFee)
			}
		})
	}
}

func TestQuoteEmptyLocation(t *testing.T) {
	for _, location := range []string{"", "   "} {
		_, _, err := Quote(location)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("Quote(%q) expected validation error, got %v", location, err)
		}
	}
}

func TestFeeFor(t *testing.T) {
	if FeeFor(TierFree) != 0 {
		t.Fatal("free tier should cost nothing")
	}
	if FeeFor(TierRegional) != 2500 {
		t.Fatal("unexpected regional fee")
	}
	if FeeFor(TierRemote) != 4000 {
		t.Fatal("unexpected remote fee")
	}
	if FeeFor(Tier("unknown")) != 4000 {
		t.Fatal("unknown tier should price as remote")
	}
}
