package steam

import (
	"fmt"
)

// inventoryAsset is one owned item instance.
type inventoryAsset struct {
	AppID      int    `json:"appid"`
	ContextID  string `json:"contextid"`
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
	Amount     string `json:"amount"`
}

// inventoryDescription carries the display metadata shared by all instances
// of one item class.
type inventoryDescription struct {
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	Name           string `json:"name"`
	MarketName     string `json:"market_name"`
	MarketHashName string `json:"market_hash_name"`
	Type           string `json:"type"`
	Tradable       int    `json:"tradable"`
	Marketable     int    `json:"marketable"`
	IconURL        string `json:"icon_url"`
}

type inventoryResponse struct {
	Assets              []inventoryAsset       `json:"assets"`
	Currency            []inventoryAsset       `json:"currency"`
	Descriptions        []inventoryDescription `json:"descriptions"`
	TotalInventoryCount int                    `json:"total_inventory_count"`
	Success             int                    `json:"success"`
	Error               string                 `json:"error"`
}

// GetInventory lists a user's inventory for one app and context, joining
// each asset with its class description. Currency items, when a game has
// them, come back as a separate slice. steamID defaults to the logged-in
// account when empty.
func (c *Client) GetInventory(steamID string, appID int, contextID string) ([]InventoryItem, []InventoryItem, int, error) {
	if err := c.closedErr(); err != nil {
		return nil, nil, 0, err
	}
	if steamID == "" {
		steamID = c.steamID
	}

	var result inventoryResponse
	resp, err := c.http.R().
		SetQueryParams(map[string]string{
			"l":     "english",
			"count": "5000",
		}).
		SetResult(&result).
		Get(fmt.Sprintf("%s/inventory/%s/%d/%s", c.communityURL, steamID, appID, contextID))
	if err != nil {
		return nil, nil, 0, err
	}
	if !resp.IsSuccess() {
		return nil, nil, 0, fmt.Errorf("inventory fetch failed: status %d", resp.StatusCode())
	}
	if result.Success != 1 {
		if result.Error != "" {
			return nil, nil, 0, fmt.Errorf("%s", result.Error)
		}
		return nil, nil, 0, fmt.Errorf("inventory fetch unsuccessful")
	}

	// Descriptions are keyed by classid/instanceid, shared across assets.
	descs := make(map[string]inventoryDescription, len(result.Descriptions))
	for _, d := range result.Descriptions {
		descs[d.ClassID+"_"+d.InstanceID] = d
	}

	join := func(assets []inventoryAsset) []InventoryItem {
		items := make([]InventoryItem, 0, len(assets))
		for _, a := range assets {
			item := InventoryItem{
				AssetID:    a.AssetID,
				ClassID:    a.ClassID,
				InstanceID: a.InstanceID,
				Amount:     a.Amount,
			}
			if d, ok := descs[a.ClassID+"_"+a.InstanceID]; ok {
				item.Name = d.Name
				item.MarketName = d.MarketName
				item.MarketHashName = d.MarketHashName
				item.Type = d.Type
				item.Tradable = d.Tradable == 1
				item.Marketable = d.Marketable == 1
				item.IconURL = d.IconURL
			}
			items = append(items, item)
		}
		return items
	}

	return join(result.Assets), join(result.Currency), result.TotalInventoryCount, nil
}
