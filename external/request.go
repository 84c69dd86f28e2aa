package external

// RequestList formats a request to send to the record service
type RequestList struct {
	Format   string         `json:"format"`
	Version  int            `json:"version"`
	Requests []*RequestItem `json:"requests"`
	Token    string         `json:"token"`
}

// RequestItem is an item from a RequestList
type RequestItem struct {
	Service string        `json:"service"`
	Action  string        `json:"action"`
	Params  []interface{} `json:"params"`
}

// newRequestList wraps request items in the JSON envelope
func (c *Client) newRequestList(reqItemList []*RequestItem) (reqList *RequestList) {
	version := DefaultVersion
	token := ""

	if c != nil {
		version = c.version
		token = c.token
	}

	return &RequestList{
		Format:   "json",
		Version:  version,
		Requests: reqItemList,
		Token:    token,
	}
}
