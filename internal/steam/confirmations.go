package steam

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"steam_bridge/internal/guard"
)

// ErrConfirmationNotFound indicates the identifier is not in the pending list.
var ErrConfirmationNotFound = errors.New("Confirmation not found")

// confListResponse is the getlist envelope.
type confListResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Conf    []struct {
		ID           string   `json:"id"`
		Type         int      `json:"type"`
		CreatorID    string   `json:"creator_id"`
		Nonce        string   `json:"nonce"`
		CreationTime int64    `json:"creation_time"`
		Icon         string   `json:"icon"`
		Headline     string   `json:"headline"`
		Summary      []string `json:"summary"`
	} `json:"conf"`
}

// confOpResponse is the ajaxop/multiajaxop envelope.
type confOpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// confirmationParams builds the query parameters for one confirmation call,
// computing a fresh proof for the tag at the current instant. Every call
// recomputes time: proofs are scoped to the tag and time-windowed.
func (c *Client) confirmationParams(tag string) (map[string]string, error) {
	if c.identitySecret == "" {
		return nil, fmt.Errorf("no identity secret for this session")
	}

	now := c.now()
	key, err := guard.ConfirmationKey(c.identitySecret, tag, now)
	if err != nil {
		return nil, err
	}

	deviceID := c.deviceID
	if deviceID == "" {
		deviceID = guard.DeviceIDForSteamID(c.steamID)
	}

	return map[string]string{
		"p":   deviceID,
		"a":   c.steamID,
		"k":   key,
		"t":   fmt.Sprintf("%d", now.Unix()),
		"m":   "android",
		"tag": tag,
	}, nil
}

// GetConfirmations lists pending confirmations with a single conf-tag proof.
func (c *Client) GetConfirmations() ([]Confirmation, error) {
	if err := c.closedErr(); err != nil {
		return nil, err
	}

	params, err := c.confirmationParams(guard.TagConf)
	if err != nil {
		return nil, err
	}

	var list confListResponse
	resp, err := c.http.R().
		SetQueryParams(params).
		SetHeader("X-Requested-With", "com.valvesoftware.android.steam.community").
		SetResult(&list).
		Get(c.communityURL + "/mobileconf/getlist")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("confirmation list failed: status %d", resp.StatusCode())
	}
	if !list.Success {
		if list.Message != "" {
			return nil, fmt.Errorf("%s", list.Message)
		}
		return nil, fmt.Errorf("confirmation list rejected")
	}

	confirmations := make([]Confirmation, 0, len(list.Conf))
	for _, raw := range list.Conf {
		conf := Confirmation{
			ID:        raw.ID,
			Type:      raw.Type,
			TypeText:  ConfirmationTypeText(raw.Type),
			Creator:   raw.CreatorID,
			Key:       raw.Nonce,
			Title:     raw.Headline,
			Receiving: strings.Join(raw.Summary, ", "),
			Time:      raw.CreationTime,
			Icon:      raw.Icon,
		}
		// For trade confirmations the creator is the offer identifier.
		if raw.Type == ConfirmationTypeTrade {
			conf.OfferID = raw.CreatorID
		}
		confirmations = append(confirmations, conf)
	}
	return confirmations, nil
}

// respondToConfirmation issues one ajaxop call with a fresh proof for op.
func (c *Client) respondToConfirmation(id, key, op string) error {
	params, err := c.confirmationParams(op)
	if err != nil {
		return err
	}
	params["op"] = op
	params["cid"] = id
	params["ck"] = key

	var result confOpResponse
	resp, err := c.http.R().
		SetQueryParams(params).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetResult(&result).
		Get(c.communityURL + "/mobileconf/ajaxop")
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("confirmation %s failed: status %d", op, resp.StatusCode())
	}
	if !result.Success {
		if result.Message != "" {
			return fmt.Errorf("%s", result.Message)
		}
		return fmt.Errorf("confirmation %s rejected", op)
	}
	return nil
}

// findConfirmation lists with a conf-tag proof and locates one entry.
func (c *Client) findConfirmation(id string) (*Confirmation, error) {
	confirmations, err := c.GetConfirmations()
	if err != nil {
		return nil, err
	}
	for i := range confirmations {
		if confirmations[i].ID == id {
			return &confirmations[i], nil
		}
	}
	return nil, ErrConfirmationNotFound
}

// AcceptConfirmation approves one pending confirmation. The listing and the
// approval are separate steps with separately computed proofs.
func (c *Client) AcceptConfirmation(id string) error {
	conf, err := c.findConfirmation(id)
	if err != nil {
		return err
	}
	return c.respondToConfirmation(conf.ID, conf.Key, guard.TagAllow)
}

// CancelConfirmation cancels one pending confirmation.
func (c *Client) CancelConfirmation(id string) error {
	conf, err := c.findConfirmation(id)
	if err != nil {
		return err
	}
	return c.respondToConfirmation(conf.ID, conf.Key, guard.TagCancel)
}

// AcceptAllConfirmations approves every pending confirmation with one bulk
// call carrying a single allow-tag proof. Returns the ids that were pending.
func (c *Client) AcceptAllConfirmations() ([]string, error) {
	confirmations, err := c.GetConfirmations()
	if err != nil {
		return nil, err
	}
	if len(confirmations) == 0 {
		return nil, nil
	}

	params, err := c.confirmationParams(guard.TagAllow)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("op", guard.TagAllow)
	ids := make([]string, 0, len(confirmations))
	for _, conf := range confirmations {
		form.Add("cid[]", conf.ID)
		form.Add("ck[]", conf.Key)
		ids = append(ids, conf.ID)
	}

	var result confOpResponse
	resp, err := c.http.R().
		SetFormDataFromValues(form).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetResult(&result).
		Post(c.communityURL + "/mobileconf/multiajaxop")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("bulk accept failed: status %d", resp.StatusCode())
	}
	if !result.Success {
		if result.Message != "" {
			return nil, fmt.Errorf("%s", result.Message)
		}
		return nil, fmt.Errorf("bulk accept rejected")
	}
	return ids, nil
}

// CancelAllConfirmations cancels every pending confirmation one by one, in
// listing order, computing a new cancel-tag proof per item. Item i+1 is not
// issued before item i completes; per-item failures are collected and do not
// abort the batch. An empty pending list issues no network calls.
func (c *Client) CancelAllConfirmations() (int, []ItemError, error) {
	confirmations, err := c.GetConfirmations()
	if err != nil {
		return 0, nil, err
	}
	if len(confirmations) == 0 {
		return 0, []ItemError{}, nil
	}

	cancelled := 0
	itemErrors := []ItemError{}
	for _, conf := range confirmations {
		if err := c.respondToConfirmation(conf.ID, conf.Key, guard.TagCancel); err != nil {
			itemErrors = append(itemErrors, ItemError{ID: conf.ID, Error: err.Error()})
			continue
		}
		cancelled++
	}
	return cancelled, itemErrors, nil
}

var offerIDPattern = regexp.MustCompile(`tradeoffer_(\d+)`)

// detailsResponse is the details envelope.
type detailsResponse struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
}

// ConfirmationOfferID resolves the trade offer behind a confirmation with a
// details-tag proof.
func (c *Client) ConfirmationOfferID(id string) (string, error) {
	if err := c.closedErr(); err != nil {
		return "", err
	}

	params, err := c.confirmationParams(guard.TagDetails)
	if err != nil {
		return "", err
	}

	var details detailsResponse
	resp, err := c.http.R().
		SetQueryParams(params).
		SetResult(&details).
		Get(c.communityURL + "/mobileconf/details/" + id)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("confirmation details failed: status %d", resp.StatusCode())
	}
	if !details.Success {
		return "", ErrConfirmationNotFound
	}

	match := offerIDPattern.FindStringSubmatch(details.HTML)
	if match == nil {
		return "", fmt.Errorf("no offer id in confirmation details")
	}
	return match[1], nil
}
