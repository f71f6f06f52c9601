package delivery

import (
	"strings"

	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/money"
)

// Tier buckets a delivery destination into one of three flat-fee bands.
type Tier string

const (
	TierFree     Tier = "free"
	TierRegional Tier = "regional"
	TierRemote   Tier = "remote"
)

// Flat fees in pesewas per tier.
const (
	feeFree     money.Money = 0
	feeRegional money.Money = 2500
	feeRemote   money.Money = 4000
)

// Greater Accra metro area ships free.
var majorCities = []string{
	"accra",
	"tema",
	"madina",
	"adenta",
	"kasoa",
	"spintex",
	"east legon",
}

// Regional capitals get the low flat fee.
var regionalCapitals = []string{
	"kumasi",
	"takoradi",
	"sekondi",
	"cape coast",
	"koforidua",
	"sunyani",
	"ho",
	"tamale",
	"bolgatanga",
	"wa",
	"techiman",
	"goaso",
	"damongo",
	"dambai",
	"nalerigu",
	"sefwi wiawso",
}

// Quote maps a free-text delivery location to its fee tier. The match is
// a case-insensitive substring scan so "Accra, Osu" still qualifies as
// metro. An empty location is a validation error rather than a silent
// fall-through to the remote tier, so callers can require the field.
func Quote(location string) (Tier, money.Money, error) {
	normalized := strings.ToLower(strings.TrimSpace(location))
	if normalized == "" {
		return "", 0, pkgerrors.New(pkgerrors.CodeValidation, "delivery location is required")
	}

	for _, city := range majorCities {
		if matchesCity(normalized, city) {
			return TierFree, feeFree, nil
		}
	}
	for _, capital := range regionalCapitals {
		if matchesCity(normalized, capital) {
			return TierRegional, feeRegional, nil
		}
	}
	return TierRemote, feeRemote, nil
}

// Short names like "wa" and "ho" would match inside unrelated words
// ("warehouse"), so they only count as whole tokens.
func matchesCity(location, city string) bool {
	if len(city) > 3 {
		return strings.Contains(location, city)
	}
	for _, token := range strings.FieldsFunc(location, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '.'
	}) {
		if token == city {
			return true
		}
	}
	return false
}

// FeeFor returns the flat fee for a known tier. Unknown tiers price as
// remote, the most conservative band.
func FeeFor(tier Tier) money.Money {
	switch tier {
	case TierFree:
		return feeFree
	case TierRegional:
		return feeRegional
	default:
		return feeRemote
	}
}
