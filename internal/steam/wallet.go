package steam

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Wallet is a raw balance snapshot. Balance is in the currency's minor units,
// Currency is the vendor's numeric currency code.
type Wallet struct {
	Balance  int64 `json:"balance"`
	Currency int   `json:"currency"`
}

// BalanceParser extracts a wallet snapshot from a community page.
type BalanceParser interface {
	ParseBalance(html string) (Wallet, error)
}

// Wallet info is embedded in the market page as a JS object literal. The
// escaped variants cover page states that emit it inside an HTML attribute.
var (
	walletBalancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"wallet_balance":\s*"?(\d+)"?`),
		regexp.MustCompile(`wallet_balance&quot;:&quot;?(\d+)`),
	}
	walletCurrencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"wallet_currency":\s*(\d+)`),
		regexp.MustCompile(`wallet_currency&quot;:(\d+)`),
	}

	// Visible-markup fallbacks for page states without the embedded object.
	// These capture an already formatted amount like "123,45 ₴".
	walletTextPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"marketWalletBalanceText":"([^"]+)"`),
		regexp.MustCompile(`id="marketWalletBalanceAmount"[^>]*>([^<]+)<`),
		regexp.MustCompile(`(?i)marketWalletBalanceText[^>]*>([^<]+)<`),
	}

	walletAmountPattern = regexp.MustCompile(`(\d+)[.,](\d{2})`)
)

// RegexBalanceParser scrapes the wallet snapshot out of market page HTML.
// Best effort: the page markup is not a contract and can change under us.
type RegexBalanceParser struct{}

func (p RegexBalanceParser) ParseBalance(html string) (Wallet, error) {
	if wallet, ok := p.parseEmbedded(html); ok {
		return wallet, nil
	}
	if wallet, ok := p.parseVisible(html); ok {
		return wallet, nil
	}
	return Wallet{}, fmt.Errorf("no wallet balance on page")
}

// parseEmbedded reads the JS wallet object, the primary source.
func (RegexBalanceParser) parseEmbedded(html string) (Wallet, bool) {
	var wallet Wallet

	found := false
	for _, pat := range walletBalancePatterns {
		if m := pat.FindStringSubmatch(html); m != nil {
			balance, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			wallet.Balance = balance
			found = true
			break
		}
	}
	if !found {
		return Wallet{}, false
	}

	for _, pat := range walletCurrencyPatterns {
		if m := pat.FindStringSubmatch(html); m != nil {
			if code, err := strconv.Atoi(m[1]); err == nil {
				wallet.Currency = code
			}
			break
		}
	}
	return wallet, true
}

// parseVisible falls back to the rendered balance text, inferring the
// currency from its symbol.
func (RegexBalanceParser) parseVisible(html string) (Wallet, bool) {
	for _, pat := range walletTextPatterns {
		m := pat.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])

		amount := walletAmountPattern.FindStringSubmatch(text)
		if amount == nil {
			continue
		}
		major, err1 := strconv.ParseInt(amount[1], 10, 64)
		minor, err2 := strconv.ParseInt(amount[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}

		return Wallet{
			Balance:  major*100 + minor,
			Currency: currencyFromSymbol(text),
		}, true
	}
	return Wallet{}, false
}

// currencyFromSymbol maps a currency marker in formatted text to the
// vendor's numeric code. Unknown markers report as USD.
func currencyFromSymbol(text string) int {
	switch {
	case strings.Contains(text, "₴") || strings.Contains(text, "грн"):
		return 18
	case strings.Contains(text, "₽") || strings.Contains(text, "руб"):
		return 5
	case strings.Contains(text, "€"):
		return 3
	default:
		return 1
	}
}

// WalletBalance fetches the market page and extracts the wallet snapshot.
func (c *Client) WalletBalance(parser BalanceParser) (Wallet, error) {
	if err := c.closedErr(); err != nil {
		return Wallet{}, err
	}
	if parser == nil {
		parser = RegexBalanceParser{}
	}

	resp, err := c.http.R().Get(c.communityURL + "/market/")
	if err != nil {
		return Wallet{}, err
	}
	if !resp.IsSuccess() {
		return Wallet{}, fmt.Errorf("market page failed: status %d", resp.StatusCode())
	}
	return parser.ParseBalance(resp.String())
}
