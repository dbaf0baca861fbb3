package collection

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/wrohdewald/gpxity/internal/models"
	"github.com/wrohdewald/gpxity/internal/track"
)

// Client hosts tracks on a remote track server, speaking its JSON API.
// Metadata travels inside the full payload, so every change rewrites
// the whole track.
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a collection backed by the server at baseURL. The
// token, if any, is sent as a bearer token.
func NewClient(baseURL, token string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{baseURL: baseURL, http: c}
}

// Identifier implements track.Collection.
func (c *Client) Identifier() string { return "client:" + c.baseURL }

// Capabilities implements track.Collection.
func (c *Client) Capabilities() track.Capabilities {
	return track.Capabilities{
		List:        true,
		ReadFull:    true,
		WriteFull:   true,
		Remove:      true,
		Rename:      true,
		WriteFields: map[string]bool{},
	}
}

// envelope matches the server's response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call sends one request with retries on connection errors and 5xx
// responses, and decodes the envelope's data into out.
func (c *Client) call(method, path string, body, out any) error {
	operation := func() error {
		req := c.http.R()
		if body != nil {
			req.SetBody(body)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("server error %d: %s", resp.StatusCode(), resp.String())
		}
		var env envelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return backoff.Permanent(fmt.Errorf("bad response from %s: %w", path, err))
		}
		if resp.StatusCode() >= http.StatusBadRequest {
			return backoff.Permanent(fmt.Errorf("%s %s: %s", method, path, env.Message))
		}
		if out != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return backoff.Permanent(fmt.Errorf("bad response from %s: %w", path, err))
			}
		}
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	return backoff.Retry(operation, policy)
}

// List implements track.Collection.
func (c *Client) List() ([]*track.Track, error) {
	var listing models.TrackListResponse
	if err := c.call(http.MethodGet, "/api/v1/tracks", nil, &listing); err != nil {
		return nil, err
	}
	result := make([]*track.Track, 0, len(listing.Data))
	for _, header := range listing.Data {
		t := newAttached(c, header.ID)
		err := t.Decoupled(func() error {
			if err := t.SetTitle(header.Title); err != nil {
				return err
			}
			if err := t.SetDescription(header.Description); err != nil {
				return err
			}
			if err := t.SetCategory(header.Category); err != nil {
				return err
			}
			if err := t.SetPublic(header.Public); err != nil {
				return err
			}
			return t.SetKeywords(header.Keywords...)
		})
		if err != nil {
			return nil, err
		}
		t.MarkHeader(track.FieldTitle, track.FieldDescription, track.FieldCategory,
			track.FieldPublic, track.FieldKeywords)
		result = append(result, t)
	}
	return result, nil
}

// ReadFull implements track.Collection.
func (c *Client) ReadFull(t *track.Track) error {
	var payload models.TrackPayload
	if err := c.call(http.MethodGet, "/api/v1/tracks/"+t.ID(), nil, &payload); err != nil {
		return err
	}
	if err := t.ParseGPX([]byte(payload.Gpx)); err != nil {
		return err
	}
	if err := t.SetTitle(payload.Title); err != nil {
		return err
	}
	if err := t.SetDescription(payload.Description); err != nil {
		return err
	}
	if err := t.SetCategory(payload.Category); err != nil {
		return err
	}
	if err := t.SetPublic(payload.Public); err != nil {
		return err
	}
	if err := t.SetKeywords(payload.Keywords...); err != nil {
		return err
	}
	return t.SetIDs(payload.IDs)
}

// WriteFull implements track.Collection. An empty identity lets the
// server assign one.
func (c *Client) WriteFull(t *track.Track, ident string) (string, error) {
	payload, err := c.payload(t, ident)
	if err != nil {
		return "", err
	}
	var created models.CreatedResponse
	if ident == "" {
		err = c.call(http.MethodPost, "/api/v1/tracks", payload, &created)
	} else {
		err = c.call(http.MethodPut, "/api/v1/tracks/"+ident, payload, &created)
	}
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// WriteField implements track.Collection. Never called since
// WriteFields is empty.
func (c *Client) WriteField(t *track.Track, field string) error {
	return &track.ErrUnsupportedOperation{Collection: c.Identifier(), Op: "write field " + field}
}

// Remove implements track.Collection.
func (c *Client) Remove(ident string) error {
	return c.call(http.MethodDelete, "/api/v1/tracks/"+ident, nil, nil)
}

// Rename implements track.Collection.
func (c *Client) Rename(t *track.Track, newIdent string) error {
	request := models.RenameRequest{ID: newIdent}
	if err := c.call(http.MethodPost, "/api/v1/tracks/"+t.ID()+"/rename", request, nil); err != nil {
		return err
	}
	return t.SetID(newIdent)
}

func (c *Client) payload(t *track.Track, ident string) (*models.TrackPayload, error) {
	xml, err := t.Xml()
	if err != nil {
		return nil, err
	}
	title, err := t.Title()
	if err != nil {
		return nil, err
	}
	description, err := t.Description()
	if err != nil {
		return nil, err
	}
	category, err := t.Category()
	if err != nil {
		return nil, err
	}
	public, err := t.Public()
	if err != nil {
		return nil, err
	}
	keywords, err := t.Keywords()
	if err != nil {
		return nil, err
	}
	ids, err := t.IDs()
	if err != nil {
		return nil, err
	}
	return &models.TrackPayload{
		TrackHeader: models.TrackHeader{
			ID:          ident,
			Title:       title,
			Description: description,
			Category:    category,
			Public:      public,
			Keywords:    keywords,
		},
		IDs: ids,
		Gpx: string(xml),
	}, nil
}

var _ track.Collection = (*Client)(nil)
