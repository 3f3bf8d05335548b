// Package pantryclient is a small HTTP client for the pantry API.  Calls
// never return transport errors: every outcome, including connection
// failures and timeouts, is reported as a Response with a Status.
// Nothing is retried.
package pantryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Status classifies the outcome of a call.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusCreated
	StatusNotFound
	StatusBadRequest
	StatusConflict
	StatusUnprocessable
	StatusTooManyRequests
	StatusInternal
	StatusConnectionError
	StatusTimeout
)

var statusNames = map[Status]string{
	StatusUnknown:         "UNKNOWN",
	StatusOK:              "OK",
	StatusCreated:         "CREATED",
	StatusNotFound:        "NOT_FOUND",
	StatusBadRequest:      "BAD_REQUEST",
	StatusConflict:        "CONFLICT",
	StatusUnprocessable:   "UNPROCESSABLE_CONTENT",
	StatusTooManyRequests: "TOO_MANY_REQUESTS",
	StatusInternal:        "INTERNAL",
	StatusConnectionError: "CONNECTION_ERROR",
	StatusTimeout:         "TIMEOUT",
}

func (s Status) String() string { return statusNames[s] }

// Connectivity reports whether the request never got an HTTP answer.
func (s Status) Connectivity() bool { return s == StatusConnectionError || s == StatusTimeout }

func statusFromHTTP(code int) Status {
	switch code {
	case http.StatusOK:
		return StatusOK
	case http.StatusCreated:
		return StatusCreated
	case http.StatusNotFound:
		return StatusNotFound
	case http.StatusBadRequest:
		return StatusBadRequest
	case http.StatusConflict:
		return StatusConflict
	case http.StatusUnprocessableEntity:
		return StatusUnprocessable
	case http.StatusTooManyRequests:
		return StatusTooManyRequests
	case http.StatusInternalServerError:
		return StatusInternal
	}
	return StatusUnknown
}

// Response is the outcome of one call.  RawStatus is -1 when no HTTP
// response was received.
type Response struct {
	Status    Status
	RawStatus int
	Body      []byte
	Err       error
}

// OK reports a 200 or 201 answer.
func (r *Response) OK() bool { return r.Status == StatusOK || r.Status == StatusCreated }

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

// Failure decodes a rejection payload.  Fields absent from the body
// stay empty.
func (r *Response) Failure() Failure {
	var f Failure
	_ = json.Unmarshal(r.Body, &f)
	return f
}

// String renders the response for CLI output.
func (r *Response) String() string {
	if r.Status.Connectivity() || r.RawStatus < 0 {
		return fmt.Sprintf("%s: %v", r.Status, r.Err)
	}
	return fmt.Sprintf("%s (%d): %s", r.Status, r.RawStatus, strings.TrimSpace(string(r.Body)))
}

// Line is one (name, quantity) request line.
type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Failure is the body of a rejected checkout or restock.
type Failure struct {
	Message           string   `json:"message"`
	NotFound          []string `json:"not_found"`
	OverMax           []Line   `json:"over_max"`
	InsufficientStock []string `json:"insufficient_stock"`
}

// Item mirrors the API's item representation.
type Item struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Stock       int    `json:"stock"`
	MaxCheckout int    `json:"max_checkout"`
}

// Transaction mirrors one /logs entry.
type Transaction struct {
	TransactionID uint64    `json:"transaction_id"`
	StudentID     *string   `json:"student_id"`
	DayOfWeek     string    `json:"day_of_week"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
	Items         []struct {
		ItemName     string `json:"item_name"`
		ItemQuantity int    `json:"item_quantity"`
	} `json:"items"`
}

// LogQuery holds the optional /logs filters.  DayOfWeek may be a day
// name or an index 0-6 with Monday = 0.
type LogQuery struct {
	DayOfWeek string
	StudentID string
	ItemName  string
	Action    string
}

// Client talks to one pantry API instance.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Items lists the catalog.
func (c *Client) Items(ctx context.Context) *Response {
	return c.do(ctx, http.MethodGet, "/items", nil)
}

// Item fetches one item by name.
func (c *Client) Item(ctx context.Context, name string) *Response {
	return c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(name), nil)
}

// Create adds an item.
func (c *Client) Create(ctx context.Context, name string, initialStock, maxCheckout int) *Response {
	return c.do(ctx, http.MethodPost, "/create", map[string]any{
		"name": name, "initial_stock": initialStock, "max_checkout": maxCheckout,
	})
}

// Checkout sends a batch checkout.  studentID may be empty.
func (c *Client) Checkout(ctx context.Context, studentID string, lines ...Line) *Response {
	return c.do(ctx, http.MethodPost, "/checkout", batchBody(studentID, lines))
}

// Restock sends a batch restock.
func (c *Client) Restock(ctx context.Context, lines ...Line) *Response {
	return c.do(ctx, http.MethodPost, "/restock", batchBody("", lines))
}

// Logs queries the transaction log.
func (c *Client) Logs(ctx context.Context, q LogQuery) *Response {
	v := url.Values{}
	if q.DayOfWeek != "" {
		v.Set("day_of_week", q.DayOfWeek)
	}
	if q.StudentID != "" {
		v.Set("student_id", q.StudentID)
	}
	if q.ItemName != "" {
		v.Set("item_name", q.ItemName)
	}
	if q.Action != "" {
		v.Set("action", q.Action)
	}
	path := "/logs"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

// DeleteItem removes one item.
func (c *Client) DeleteItem(ctx context.Context, name string) *Response {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(name), nil)
}

// DeleteAll wipes the inventory and its logs.
func (c *Client) DeleteAll(ctx context.Context) *Response {
	return c.do(ctx, http.MethodDelete, "/delete_all", nil)
}

func batchBody(studentID string, lines []Line) map[string]any {
	body := map[string]any{"items": lines}
	if studentID != "" {
		body["student_id"] = studentID
	}
	return body
}

func (c *Client) do(ctx context.Context, method, path string, body any) *Response {
	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return &Response{Status: StatusUnknown, RawStatus: -1, Err: err}
		}
		rdr = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return &Response{Status: StatusUnknown, RawStatus: -1, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return &Response{Status: classifyTransport(err), RawStatus: -1, Err: err}
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	out := &Response{Status: statusFromHTTP(res.StatusCode), RawStatus: res.StatusCode, Body: data, Err: err}
	if err == nil && !out.OK() {
		out.Err = errors.New("request failed with status " + strconv.Itoa(res.StatusCode))
	}
	return out
}

func classifyTransport(err error) Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return StatusTimeout
	}
	return StatusConnectionError
}
