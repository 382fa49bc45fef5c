package steam

// Confirmation type identifiers as reported by the mobile confirmation list.
const (
	ConfirmationTypeGeneric           = 1
	ConfirmationTypeTrade             = 2
	ConfirmationTypeMarket            = 3
	ConfirmationTypeFeatureOptOut     = 4
	ConfirmationTypePhoneNumberChange = 5
	ConfirmationTypeAccountRecovery   = 6
)

// ConfirmationTypeText returns a human-readable name for a confirmation type.
func ConfirmationTypeText(t int) string {
	switch t {
	case ConfirmationTypeGeneric:
		return "Generic"
	case ConfirmationTypeTrade:
		return "Trade"
	case ConfirmationTypeMarket:
		return "Market"
	case ConfirmationTypeFeatureOptOut:
		return "FeatureOptOut"
	case ConfirmationTypePhoneNumberChange:
		return "PhoneNumberChange"
	case ConfirmationTypeAccountRecovery:
		return "AccountRecovery"
	default:
		return "Unknown"
	}
}

// Confirmation is a pending sensitive action awaiting mobile approval.
// Key is the single-use nonce that must accompany an accept or cancel.
type Confirmation struct {
	ID        string `json:"id"`
	Type      int    `json:"type"`
	TypeText  string `json:"typeText"`
	Creator   string `json:"creator"`
	Key       string `json:"key"`
	Title     string `json:"title"`
	Receiving string `json:"receiving"`
	Time      int64  `json:"time"`
	Icon      string `json:"icon"`
	OfferID   string `json:"offerID,omitempty"`
}

// ItemError records a single failed item inside a batch operation.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Trade offer states tracked by the vendor.
const (
	OfferStateInvalid      = 1
	OfferStateActive       = 2
	OfferStateAccepted     = 3
	OfferStateCountered    = 4
	OfferStateExpired      = 5
	OfferStateCanceled     = 6
	OfferStateDeclined     = 7
	OfferStateItemsInvalid = 8
	OfferStateNeedsConfirm = 9
	OfferStateInEscrow     = 11
)

// Asset identifies an item inside a trade offer.
type Asset struct {
	AppID     int    `json:"appid"`
	ContextID string `json:"contextid"`
	AssetID   string `json:"assetid"`
	Amount    string `json:"amount"`
}

// Offer is a snapshot of a trade offer.
type Offer struct {
	ID             string  `json:"id"`
	State          int     `json:"state"`
	Partner        string  `json:"partner,omitempty"`
	Message        string  `json:"message"`
	ItemsToGive    []Asset `json:"itemsToGive"`
	ItemsToReceive []Asset `json:"itemsToReceive"`
	Created        int64   `json:"created"`
	Updated        int64   `json:"updated"`
	Expires        int64   `json:"expires"`
	TradeID        string  `json:"tradeID,omitempty"`
}

// OfferSummary is the compact shape used by offer listings.
type OfferSummary struct {
	ID      string `json:"id"`
	State   int    `json:"state"`
	Message string `json:"message"`
	Created int64  `json:"created"`
	Updated int64  `json:"updated"`
}

// IncomingOffer is an active received offer.
type IncomingOffer struct {
	ID             string `json:"id"`
	State          int    `json:"state"`
	Partner        string `json:"partner"`
	Message        string `json:"message"`
	ItemsToGive    int    `json:"itemsToGive"`
	ItemsToReceive int    `json:"itemsToReceive"`
	Created        int64  `json:"created"`
	Expires        int64  `json:"expires"`
	TradeID        string `json:"tradeID,omitempty"`
}

// AcceptedOffer records one successfully auto-accepted offer.
type AcceptedOffer struct {
	OfferID string `json:"offerId"`
	Partner string `json:"partner"`
	Status  string `json:"status"`
}

// InventoryItem is a single tradable item description.
type InventoryItem struct {
	AssetID        string `json:"assetid"`
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	Amount         string `json:"amount"`
	Name           string `json:"name"`
	MarketName     string `json:"market_name"`
	MarketHashName string `json:"market_hash_name"`
	Type           string `json:"type"`
	Tradable       bool   `json:"tradable"`
	Marketable     bool   `json:"marketable"`
	IconURL        string `json:"icon_url"`
}
