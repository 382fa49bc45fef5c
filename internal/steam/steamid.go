package steam

import (
	"fmt"
	"math/big"
	"net/url"
)

// steamID64Base is the offset between an account's 32-bit relative index and
// its 64-bit identifier.
const steamID64Base = "76561197960265728"

// PartnerToSteamID64 converts a trade URL's relative partner index to the
// full 64-bit identifier. The sum exceeds 53 bits, so the arithmetic stays in
// big.Int end to end; no float conversion is allowed anywhere on this path.
func PartnerToSteamID64(partner string) (string, error) {
	index, ok := new(big.Int).SetString(partner, 10)
	if !ok || index.Sign() < 0 {
		return "", fmt.Errorf("invalid partner id %q", partner)
	}
	base, _ := new(big.Int).SetString(steamID64Base, 10)
	return new(big.Int).Add(index, base).String(), nil
}

// TradeURLParts is the partner identifier and access token carried by a
// shareable trade URL.
type TradeURLParts struct {
	SteamID64 string
	Token     string
}

// ParseTradeURL extracts and converts the partner and token query parameters
// of a trade URL.
func ParseTradeURL(rawURL string) (*TradeURLParts, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("Invalid trade URL format: %v", err)
	}

	partner := u.Query().Get("partner")
	if partner == "" {
		return nil, fmt.Errorf("Invalid trade URL: missing partner parameter")
	}

	steamID, err := PartnerToSteamID64(partner)
	if err != nil {
		return nil, fmt.Errorf("Invalid trade URL format: %v", err)
	}

	return &TradeURLParts{
		SteamID64: steamID,
		Token:     u.Query().Get("token"),
	}, nil
}
