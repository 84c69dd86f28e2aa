package external

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T,
	handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
	}), srv
}

func TestFetchItemDecodesEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reqList := &RequestList{}
		if err := json.NewDecoder(r.Body).Decode(reqList); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if reqList.Token != "test-token" {
			t.Errorf("token = %q, want test-token", reqList.Token)
		}
		if len(reqList.Requests) != 1 ||
			reqList.Requests[0].Action != "item.get" {
			t.Errorf("unexpected requests: %+v", reqList.Requests)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"responses": []map[string]interface{}{{
				"success": true,
				"data": map[string]interface{}{
					"id": "ext-9",
					"fields": map[string]interface{}{
						"email": "a@x.com",
					},
				},
			}},
		})
	})

	item, err := c.FetchItem("contact", "ext-9")
	if err != nil {
		t.Fatalf("FetchItem: %v", err)
	}
	if item.ID != "ext-9" {
		t.Errorf("item id = %q, want ext-9", item.ID)
	}
	if item.Fields["email"] != "a@x.com" {
		t.Errorf("fields = %v", item.Fields)
	}
}

func TestCreateItemReturnsAssignedID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"responses": []map[string]interface{}{{
				"success": true,
				"data":    map[string]interface{}{"id": "ext-new"},
			}},
		})
	})

	id, err := c.CreateItem("organization",
		map[string]interface{}{"name": "Harborview"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if id != "ext-new" {
		t.Errorf("id = %q, want ext-new", id)
	}
}

func TestSendClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"not found", http.StatusNotFound, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			err := c.UpdateItem("contact", "ext-1",
				map[string]interface{}{"email": "a@x.com"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsRetryable(err); got != tc.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tc.retryable)
			}
		})
	}
}

func TestSendClassifiesEnvelopeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"responses": []map[string]interface{}{{
				"success":   false,
				"errorCode": ErrCodeItemNotFound,
				"message":   "item does not exist",
			}},
		})
	})

	_, err := c.FetchItem("contact", "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Error("not-found should be permanent")
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound")
	}
}

func TestSendRetryableOnConnectionFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := c.DeleteItem("contact", "ext-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Error("connection failure should be retryable")
	}
}
