package external

import (
	"encoding/json"

	"github.com/harborview/crmsync/e"
)

const (
	ECodeEX0201 = e.CodeEX02 + "01"
	ECodeEX0202 = e.CodeEX02 + "02"
)

// ResponseList represents the record service response envelope
type ResponseList struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Code      int         `json:"code"`
	Responses []*Response `json:"responses"`
}

// Response represents a single response within the envelope
type Response struct {
	Success   bool            `json:"success"`
	Code      int             `json:"code"`
	ErrorCode string          `json:"errorCode"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Errors    []string        `json:"errors"`
}

// firstResponse returns the first item response, converting service level
// failures into a ServiceError
func (rl *ResponseList) firstResponse() (res *Response, err error) {
	if len(rl.Responses) == 0 {
		return nil, e.N(ECodeEX0201, "record service returned no responses")
	}

	res = rl.Responses[0]
	if !res.Success {
		return nil, &ServiceError{
			StatusCode: res.Code,
			ErrorCode:  res.ErrorCode,
			Message:    res.Message,
			retryable:  retryableServiceCode(res.ErrorCode, res.Code),
		}
	}

	if !rl.Success {
		return nil, e.N(ECodeEX0202, rl.Message)
	}

	return res, nil
}
