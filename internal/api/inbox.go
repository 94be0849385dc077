package api

import (
	"fmt"
	"net/url"
	"strconv"
)

// --- Inbox Methods ---

// ListInbox returns the newest inbox items. A non-positive limit lets the
// backend choose.
func (c *Client) ListInbox(limit int) ([]InboxItem, error) {
	params := QueryParams{}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := c.get(buildQuery("/inbox", params))
	if err != nil {
		return nil, err
	}
	return decodeList[InboxItem](data)
}

// GetInboxQuestions returns the follow-up questions for an item.
func (c *Client) GetInboxQuestions(id string) ([]InboxQuestion, error) {
	data, err := c.get(fmt.Sprintf("/inbox/%s/questions", url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	return decodeList[InboxQuestion](data)
}

// RecheckInboxItem asks the backend to re-run analysis on an item.
func (c *Client) RecheckInboxItem(id string) error {
	data, err := c.post(fmt.Sprintf("/inbox/%s/recheck", url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	return checkResult(data)
}

// ApplyInboxAction records a triage decision for an item.
func (c *Client) ApplyInboxAction(id string, action InboxAction) error {
	body := map[string]string{"action": string(action)}
	data, err := c.post(fmt.Sprintf("/inbox/%s/action", url.PathEscape(id)), body)
	if err != nil {
		return err
	}
	return checkResult(data)
}

// DeleteInboxItem removes an item from the inbox.
func (c *Client) DeleteInboxItem(id string) error {
	data, err := c.del(fmt.Sprintf("/inbox/%s", url.PathEscape(id)))
	if err != nil {
		return err
	}
	return checkResult(data)
}
