// Package sdk provides the client-side library for the MediBook HTTP API.
// The client keeps the admin session cookie across calls, so one Login is
// enough for a whole sequence of admin operations.
package sdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/medibook-dev/medibook/pkg/schema"
)

// ErrBadCredentials is returned by Login when the server rejects the
// username/password pair.
var ErrBadCredentials = errors.New("bad admin credentials")

// Client is an HTTP client for a MediBook server.
type Client struct {
	base string
	http *http.Client
}

// New builds a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			// Logout answers with a redirect; we want the redirect itself,
			// not whatever page sits behind it.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// do sends one request and decodes the JSON response into out (if non-nil).
// Error statuses are turned into Go errors carrying the server's message.
func (c *Client) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil {
			if apiErr.Message != "" {
				return fmt.Errorf("%s %s: %s", method, path, apiErr.Message)
			}
			if apiErr.Error != "" {
				return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
			}
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

// Ping checks that the server is up.
func (c *Client) Ping() error {
	return c.do(http.MethodGet, "/healthz", nil, nil)
}

// Login authenticates the admin session.
func (c *Client) Login(username, password string) error {
	var out struct {
		Success bool `json:"success"`
	}
	err := c.do(http.MethodPost, "/api/admin/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return err
	}
	if !out.Success {
		return ErrBadCredentials
	}
	return nil
}

// Logout tears down the admin session.
func (c *Client) Logout() error {
	return c.do(http.MethodGet, "/api/admin/logout", nil, nil)
}

// SubmitAppointment sends a public appointment submission.
func (c *Client) SubmitAppointment(fields map[string]any) (schema.Record, error) {
	return c.submit("/api/appointment", fields)
}

// SubmitFeedback sends a public feedback submission.
func (c *Client) SubmitFeedback(fields map[string]any) (schema.Record, error) {
	return c.submit("/api/feedback", fields)
}

func (c *Client) submit(path string, fields map[string]any) (schema.Record, error) {
	var out struct {
		Data schema.Record `json:"data"`
	}
	if err := c.do(http.MethodPost, path, fields, &out); err != nil {
		return schema.Record{}, err
	}
	return out.Data, nil
}

// List fetches all records of a collection (admin session required).
func (c *Client) List(collection string) ([]schema.Record, error) {
	var recs []schema.Record
	if err := c.do(http.MethodGet, "/api/"+collection, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Clear snapshots and empties a collection, returning the server's message.
func (c *Client) Clear(collection string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(http.MethodDelete, "/api/"+collection, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Undo restores the collection from its most recent snapshot and returns
// how many records came back.
func (c *Client) Undo(collection string) (int, error) {
	var out struct {
		Restored int `json:"restored"`
	}
	if err := c.do(http.MethodPost, "/api/"+collection+"/undo", nil, &out); err != nil {
		return 0, err
	}
	return out.Restored, nil
}

// UpdateAppointment patches fields on one appointment record.
func (c *Client) UpdateAppointment(id string, patch map[string]any) (schema.Record, error) {
	var out struct {
		Data schema.Record `json:"data"`
	}
	if err := c.do(http.MethodPatch, "/api/appointments/"+id, patch, &out); err != nil {
		return schema.Record{}, err
	}
	return out.Data, nil
}
