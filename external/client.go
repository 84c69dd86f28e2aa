// Package external provides the client for the external record service. The
// service speaks a JSON envelope over HTTP: a request list posted to a single
// endpoint, each item naming a service, an action and parameters.
//
// Basic usage:
//
//	client := external.NewClient(external.ClientConfig{
//		BaseURL: "https://crm.example.com",
//		Token:   token,
//	})
//
//	item, err := client.FetchItem("contact", "ext-123")
//	if err != nil {
//		return err
//	}
package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/harborview/crmsync/e"
)

const (
	// DefaultPath is the default path to the record service
	DefaultPath = "/services/"
	// DefaultVersion is the default version number to use in the request
	DefaultVersion = 1
	// DefaultTimeout bounds a single envelope round trip
	DefaultTimeout = 30 * time.Second

	serviceRecord = "record"

	actionItemGet    = "item.get"
	actionItemCreate = "item.create"
	actionItemUpdate = "item.update"
	actionItemDelete = "item.delete"

	ECodeEX0101 = e.CodeEX01 + "01"
	ECodeEX0102 = e.CodeEX01 + "02"
	ECodeEX0103 = e.CodeEX01 + "03"
	ECodeEX0104 = e.CodeEX01 + "04"
	ECodeEX0105 = e.CodeEX01 + "05"
	ECodeEX0106 = e.CodeEX01 + "06"
	ECodeEX0107 = e.CodeEX01 + "07"
)

// ClientConfig configuration options for NewClient
type ClientConfig struct {
	BaseURL string
	Path    string
	Token   string
	Timeout time.Duration
}

// Client handles the posting of envelope requests to the record service
type Client struct {
	baseURL    string
	path       string
	version    int
	token      string
	httpClient *http.Client
}

// NewClient returns a new client for the record service
func NewClient(cfg ClientConfig) (c *Client) {
	c = &Client{
		baseURL: cfg.BaseURL,
		path:    cfg.Path,
		version: DefaultVersion,
		token:   cfg.Token,
	}

	if c.path == "" {
		c.path = DefaultPath
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c.httpClient = &http.Client{Timeout: timeout}

	return c
}

// SetHTTPClient overrides the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Item is a record as the external service represents it
type Item struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// FetchItem retrieves the current external state of an item
func (c *Client) FetchItem(entityType, externalID string) (item *Item, err error) {
	res, err := c.send(&RequestItem{
		Service: serviceRecord,
		Action:  actionItemGet,
		Params:  []interface{}{entityType, externalID},
	})
	if err != nil {
		return nil, e.W(err, ECodeEX0101)
	}

	item = &Item{}
	if err := json.Unmarshal(res.Data, item); err != nil {
		return nil, e.W(err, ECodeEX0102)
	}

	return item, nil
}

// CreateItem creates an item in the external service and returns the id the
// service assigned to it
func (c *Client) CreateItem(entityType string,
	fields map[string]interface{}) (externalID string, err error) {

	res, err := c.send(&RequestItem{
		Service: serviceRecord,
		Action:  actionItemCreate,
		Params:  []interface{}{entityType, fields},
	})
	if err != nil {
		return "", e.W(err, ECodeEX0103)
	}

	item := &Item{}
	if err := json.Unmarshal(res.Data, item); err != nil {
		return "", e.W(err, ECodeEX0102)
	}
	if item.ID == "" {
		return "", e.N(ECodeEX0103, "create returned no item id")
	}

	return item.ID, nil
}

// UpdateItem overwrites the passed fields on an existing external item
func (c *Client) UpdateItem(entityType, externalID string,
	fields map[string]interface{}) (err error) {

	if _, err := c.send(&RequestItem{
		Service: serviceRecord,
		Action:  actionItemUpdate,
		Params:  []interface{}{entityType, externalID, fields},
	}); err != nil {
		return e.W(err, ECodeEX0104)
	}

	return nil
}

// DeleteItem removes an item from the external service
func (c *Client) DeleteItem(entityType, externalID string) (err error) {
	if _, err := c.send(&RequestItem{
		Service: serviceRecord,
		Action:  actionItemDelete,
		Params:  []interface{}{entityType, externalID},
	}); err != nil {
		return e.W(err, ECodeEX0105)
	}

	return nil
}

// send posts a single-item request list and returns the matching response.
// Transport failures and non-2xx statuses are classified for the caller
// through ServiceError so the drain loop can decide between requeue and fail.
func (c *Client) send(reqItem *RequestItem) (res *Response, err error) {
	reqList := c.newRequestList([]*RequestItem{reqItem})

	body, err := json.Marshal(reqList)
	if err != nil {
		return nil, e.W(err, ECodeEX0106)
	}

	httpRes, err := c.httpClient.Post(c.baseURL+c.path, "application/json",
		bytes.NewReader(body))
	if err != nil {
		// Timeouts, connection refusals and DNS failures are all transient
		return nil, NewServiceError(0, "", err.Error(), true)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return nil, NewServiceError(httpRes.StatusCode, "",
			fmt.Sprintf("record service returned %s", httpRes.Status),
			retryableStatus(httpRes.StatusCode))
	}

	resList := &ResponseList{}
	if err := json.NewDecoder(httpRes.Body).Decode(resList); err != nil {
		return nil, e.W(err, ECodeEX0107)
	}

	return resList.firstResponse()
}
