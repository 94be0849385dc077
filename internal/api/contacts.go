package api

import (
	"fmt"
	"net/url"
)

// --- Contact Methods ---

// ListContacts returns every contact.
func (c *Client) ListContacts() ([]Contact, error) {
	data, err := c.get("/contacts")
	if err != nil {
		return nil, err
	}
	return decodeList[Contact](data)
}

// CreateContact adds a contact.
func (c *Client) CreateContact(input CreateContactInput) (*Contact, error) {
	data, err := c.post("/contacts", input)
	if err != nil {
		return nil, err
	}
	if err := checkResult(data); err != nil {
		return nil, err
	}
	return decodeOne[Contact](data)
}

// UpdateContact patches the given contact fields.
func (c *Client) UpdateContact(id string, input UpdateContactInput) (*Contact, error) {
	data, err := c.patch(fmt.Sprintf("/contacts/%s", url.PathEscape(id)), input)
	if err != nil {
		return nil, err
	}
	if err := checkResult(data); err != nil {
		return nil, err
	}
	return decodeOne[Contact](data)
}

// DeleteContact removes a contact.
func (c *Client) DeleteContact(id string) error {
	data, err := c.del(fmt.Sprintf("/contacts/%s", url.PathEscape(id)))
	if err != nil {
		return err
	}
	return checkResult(data)
}

// GetContactPreferences returns what the assistant has learned about a
// contact. Contacts with no record yield an error matching ErrNotFound.
func (c *Client) GetContactPreferences(id string) ([]Preference, error) {
	data, err := c.get(fmt.Sprintf("/contacts/%s/preferences", url.PathEscape(id)))
	if err != nil {
		return nil, err
	}
	return decodeList[Preference](data)
}
