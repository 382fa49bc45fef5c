package steam

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// CreateOfferOptions describes a new trade offer. Exactly one of
// PartnerSteamID or PartnerTradeURL must identify the partner; a trade URL
// also supplies the access token unless Token overrides it.
type CreateOfferOptions struct {
	PartnerSteamID  string
	PartnerTradeURL string
	Token           string
	ItemsFromMe     []Asset
	ItemsFromThem   []Asset
	Message         string
}

// tradeOfferSide is one party's half of the offer payload.
type tradeOfferSide struct {
	Assets   []Asset `json:"assets"`
	Currency []any   `json:"currency"`
	Ready    bool    `json:"ready"`
}

// newOfferResponse is the offer-creation envelope.
type newOfferResponse struct {
	TradeOfferID            string `json:"tradeofferid"`
	NeedsMobileConfirmation bool   `json:"needs_mobile_confirmation"`
	NeedsEmailConfirmation  bool   `json:"needs_email_confirmation"`
	EmailDomain             string `json:"email_domain"`
	StrError                string `json:"strError"`
}

// CreateOffer sends a new trade offer and returns its identifier and status.
// Status is "pending" while the offer awaits mobile or email confirmation,
// "sent" otherwise.
func (c *Client) CreateOffer(opts CreateOfferOptions) (string, string, error) {
	if err := c.closedErr(); err != nil {
		return "", "", err
	}

	partnerID := opts.PartnerSteamID
	token := opts.Token
	if opts.PartnerTradeURL != "" {
		parts, err := ParseTradeURL(opts.PartnerTradeURL)
		if err != nil {
			return "", "", err
		}
		partnerID = parts.SteamID64
		if parts.Token != "" {
			token = parts.Token
		}
	}
	if partnerID == "" {
		return "", "", fmt.Errorf("Either partnerTradeUrl or partnerSteamId must be provided")
	}

	me := tradeOfferSide{Assets: opts.ItemsFromMe, Currency: []any{}}
	them := tradeOfferSide{Assets: opts.ItemsFromThem, Currency: []any{}}
	if me.Assets == nil {
		me.Assets = []Asset{}
	}
	if them.Assets == nil {
		them.Assets = []Asset{}
	}

	offerJSON, err := json.Marshal(map[string]any{
		"newversion": true,
		"version":    2,
		"me":         me,
		"them":       them,
	})
	if err != nil {
		return "", "", err
	}

	createParams := "{}"
	if token != "" {
		raw, _ := json.Marshal(map[string]string{"trade_offer_access_token": token})
		createParams = string(raw)
	}

	referer := c.communityURL + "/tradeoffer/new/?partner=" + partnerID
	var result newOfferResponse
	resp, err := c.http.R().
		SetHeader("Referer", referer).
		SetFormData(map[string]string{
			"sessionid":                 c.sessionID,
			"serverid":                  "1",
			"partner":                   partnerID,
			"tradeoffermessage":         opts.Message,
			"json_tradeoffer":           string(offerJSON),
			"captcha":                   "",
			"trade_offer_create_params": createParams,
		}).
		SetResult(&result).
		Post(c.communityURL + "/tradeoffer/new/send")
	if err != nil {
		return "", "", err
	}
	if result.StrError != "" {
		return "", "", fmt.Errorf("%s", result.StrError)
	}
	if !resp.IsSuccess() || result.TradeOfferID == "" {
		return "", "", fmt.Errorf("offer creation failed: status %d", resp.StatusCode())
	}

	status := "sent"
	if result.NeedsMobileConfirmation || result.NeedsEmailConfirmation {
		status = "pending"
	}
	return result.TradeOfferID, status, nil
}

// apiOffer is the Web API's trade offer shape.
type apiOffer struct {
	TradeOfferID   string  `json:"tradeofferid"`
	AccountIDOther int64   `json:"accountid_other"`
	Message        string  `json:"message"`
	ExpirationTime int64   `json:"expiration_time"`
	State          int     `json:"trade_offer_state"`
	ItemsToGive    []Asset `json:"items_to_give"`
	ItemsToReceive []Asset `json:"items_to_receive"`
	TimeCreated    int64   `json:"time_created"`
	TimeUpdated    int64   `json:"time_updated"`
	TradeID        string  `json:"tradeid"`
}

func (o *apiOffer) partnerSteamID() string {
	id, _ := PartnerToSteamID64(strconv.FormatInt(o.AccountIDOther, 10))
	return id
}

func (o *apiOffer) toOffer() *Offer {
	offer := &Offer{
		ID:             o.TradeOfferID,
		State:          o.State,
		Partner:        o.partnerSteamID(),
		Message:        o.Message,
		ItemsToGive:    o.ItemsToGive,
		ItemsToReceive: o.ItemsToReceive,
		Created:        o.TimeCreated,
		Updated:        o.TimeUpdated,
		Expires:        o.ExpirationTime,
		TradeID:        o.TradeID,
	}
	if offer.ItemsToGive == nil {
		offer.ItemsToGive = []Asset{}
	}
	if offer.ItemsToReceive == nil {
		offer.ItemsToReceive = []Asset{}
	}
	return offer
}

// GetOffer fetches a single trade offer.
func (c *Client) GetOffer(offerID string) (*Offer, error) {
	if err := c.closedErr(); err != nil {
		return nil, err
	}

	var result struct {
		Response struct {
			Offer *apiOffer `json:"offer"`
		} `json:"response"`
	}
	resp, err := c.http.R().
		SetQueryParams(map[string]string{
			"access_token": c.accessToken,
			"tradeofferid": offerID,
			"language":     "english",
		}).
		SetResult(&result).
		Get(c.apiURL + "/IEconService/GetTradeOffer/v1/")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("offer lookup failed: status %d", resp.StatusCode())
	}
	if result.Response.Offer == nil {
		return nil, fmt.Errorf("offer %s not found", offerID)
	}
	return result.Response.Offer.toOffer(), nil
}

// acceptResponse is the offer-accept envelope.
type acceptResponse struct {
	TradeID                 string `json:"tradeid"`
	NeedsMobileConfirmation bool   `json:"needs_mobile_confirmation"`
	StrError                string `json:"strError"`
}

// AcceptOffer accepts a received trade offer. Returns "pending" when the
// acceptance still needs mobile confirmation, "accepted" otherwise.
func (c *Client) AcceptOffer(offerID string) (string, error) {
	offer, err := c.GetOffer(offerID)
	if err != nil {
		return "", err
	}

	var result acceptResponse
	resp, err := c.http.R().
		SetHeader("Referer", c.communityURL+"/tradeoffer/"+offerID+"/").
		SetFormData(map[string]string{
			"sessionid":    c.sessionID,
			"serverid":     "1",
			"tradeofferid": offerID,
			"partner":      offer.Partner,
			"captcha":      "",
		}).
		SetResult(&result).
		Post(c.communityURL + "/tradeoffer/" + offerID + "/accept")
	if err != nil {
		return "", err
	}
	if result.StrError != "" {
		return "", fmt.Errorf("%s", result.StrError)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("offer accept failed: status %d", resp.StatusCode())
	}

	if result.NeedsMobileConfirmation {
		return "pending", nil
	}
	return "accepted", nil
}

// respondToOffer issues a decline or cancel against an offer.
func (c *Client) respondToOffer(offerID, action string) error {
	if err := c.closedErr(); err != nil {
		return err
	}

	var result struct {
		TradeOfferID string `json:"tradeofferid"`
		StrError     string `json:"strError"`
	}
	resp, err := c.http.R().
		SetFormData(map[string]string{"sessionid": c.sessionID}).
		SetResult(&result).
		Post(c.communityURL + "/tradeoffer/" + offerID + "/" + action)
	if err != nil {
		return err
	}
	if result.StrError != "" {
		return fmt.Errorf("%s", result.StrError)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("offer %s failed: status %d", action, resp.StatusCode())
	}
	return nil
}

// DeclineOffer declines a received offer.
func (c *Client) DeclineOffer(offerID string) error {
	return c.respondToOffer(offerID, "decline")
}

// CancelOffer cancels an offer this account sent.
func (c *Client) CancelOffer(offerID string) error {
	return c.respondToOffer(offerID, "cancel")
}

// getOffers fetches sent and received offers. activeOnly selects the
// vendor-side filter; anything else returns historical offers too.
func (c *Client) getOffers(activeOnly bool) ([]apiOffer, []apiOffer, error) {
	if err := c.closedErr(); err != nil {
		return nil, nil, err
	}

	params := map[string]string{
		"access_token":        c.accessToken,
		"get_sent_offers":     "1",
		"get_received_offers": "1",
		"get_descriptions":    "0",
		"language":            "english",
	}
	if activeOnly {
		params["active_only"] = "1"
	} else {
		params["historical_only"] = "1"
		params["time_historical_cutoff"] = "0"
	}

	var result struct {
		Response struct {
			Sent     []apiOffer `json:"trade_offers_sent"`
			Received []apiOffer `json:"trade_offers_received"`
		} `json:"response"`
	}
	resp, err := c.http.R().
		SetQueryParams(params).
		SetResult(&result).
		Get(c.apiURL + "/IEconService/GetTradeOffers/v1/")
	if err != nil {
		return nil, nil, err
	}
	if !resp.IsSuccess() {
		return nil, nil, fmt.Errorf("offer listing failed: status %d", resp.StatusCode())
	}
	return result.Response.Sent, result.Response.Received, nil
}

// GetOffers lists sent and received offers. filter "active" (the default)
// returns current offers, anything else historical ones.
func (c *Client) GetOffers(filter string) ([]OfferSummary, []OfferSummary, error) {
	sent, received, err := c.getOffers(filter == "" || filter == "active")
	if err != nil {
		return nil, nil, err
	}
	return summarize(sent), summarize(received), nil
}

func summarize(offers []apiOffer) []OfferSummary {
	out := make([]OfferSummary, 0, len(offers))
	for _, o := range offers {
		out = append(out, OfferSummary{
			ID:      o.TradeOfferID,
			State:   o.State,
			Message: o.Message,
			Created: o.TimeCreated,
			Updated: o.TimeUpdated,
		})
	}
	return out
}

// IncomingOffers returns the active offers other accounts sent to this one.
func (c *Client) IncomingOffers() ([]IncomingOffer, error) {
	_, received, err := c.getOffers(true)
	if err != nil {
		return nil, err
	}

	incoming := make([]IncomingOffer, 0, len(received))
	for _, o := range received {
		if o.State != OfferStateActive {
			continue
		}
		incoming = append(incoming, IncomingOffer{
			ID:             o.TradeOfferID,
			State:          o.State,
			Partner:        o.partnerSteamID(),
			Message:        o.Message,
			ItemsToGive:    len(o.ItemsToGive),
			ItemsToReceive: len(o.ItemsToReceive),
			Created:        o.TimeCreated,
			Expires:        o.ExpirationTime,
			TradeID:        o.TradeID,
		})
	}
	return incoming, nil
}

// AutoAcceptOffers accepts active received offers one after another. When
// partnerSteamID is set and acceptAll is false only that partner's offers are
// touched. Per-offer failures are collected, not fatal.
func (c *Client) AutoAcceptOffers(partnerSteamID string, acceptAll bool) ([]AcceptedOffer, []ItemError, error) {
	incoming, err := c.IncomingOffers()
	if err != nil {
		return nil, nil, err
	}

	accepted := []AcceptedOffer{}
	itemErrors := []ItemError{}
	for _, offer := range incoming {
		if partnerSteamID != "" && !acceptAll && offer.Partner != partnerSteamID {
			continue
		}
		status, err := c.AcceptOffer(offer.ID)
		if err != nil {
			itemErrors = append(itemErrors, ItemError{ID: offer.ID, Error: err.Error()})
			continue
		}
		accepted = append(accepted, AcceptedOffer{OfferID: offer.ID, Partner: offer.Partner, Status: status})
	}
	return accepted, itemErrors, nil
}

var tradeTokenPattern = regexp.MustCompile(`tradeoffer/new/\?partner=\d+(?:&amp;|&)token=([a-zA-Z0-9_-]+)`)

// OfferToken fetches this account's trade offer access token by scraping the
// trade offers privacy page.
func (c *Client) OfferToken() (string, error) {
	if err := c.closedErr(); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		Get(c.communityURL + "/profiles/" + c.steamID + "/tradeoffers/privacy")
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("trade token page failed: status %d", resp.StatusCode())
	}

	match := tradeTokenPattern.FindStringSubmatch(resp.String())
	if match == nil {
		return "", fmt.Errorf("no trade offer token on privacy page")
	}
	return match[1], nil
}

// TradeURL composes this account's shareable trade URL.
func (c *Client) TradeURL() (string, string, error) {
	token, err := c.OfferToken()
	if err != nil {
		return "", "", err
	}
	parts, _ := splitSteamID64(c.steamID)
	url := fmt.Sprintf("https://steamcommunity.com/tradeoffer/new/?partner=%s&token=%s", parts, token)
	return token, url, nil
}

// splitSteamID64 converts a 64-bit identifier back to the 32-bit relative
// index used in trade URLs.
func splitSteamID64(steamID string) (string, error) {
	id, err := strconv.ParseUint(steamID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid steam id %q", steamID)
	}
	const base = uint64(76561197960265728)
	if id < base {
		return "", fmt.Errorf("steam id %q below individual account range", steamID)
	}
	return strconv.FormatUint(id-base, 10), nil
}
