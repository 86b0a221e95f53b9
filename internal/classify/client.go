package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"edgerelay/internal/core"
)

// ClientConfig holds classification service settings.
type ClientConfig struct {
	// URL is the classification endpoint.
	URL string

	// Token authenticates requests when set; absent means unauthenticated.
	Token string

	// Timeout is the call's own budget, independent of the inbound request
	// deadline. Classification is best-effort enrichment, not mandatory
	// content, so the budget is deliberately short.
	Timeout time.Duration
}

// Client calls the external classification service. It performs no caching;
// cache reads and writes are the orchestrator's responsibility, keeping this
// a pure I/O boundary.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a classification client.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Upstream request body shape.
type classifyPayload struct {
	Site   sitePayload   `json:"site"`
	Imp    []impPayload  `json:"imp"`
	Device devicePayload `json:"device"`
	User   *userPayload  `json:"user,omitempty"`
}

type sitePayload struct {
	Domain string  `json:"domain"`
	Page   string  `json:"page"`
	Ext    siteExt `json:"ext"`
}

type siteExt struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

type impPayload struct {
	ID string `json:"id"`
}

type devicePayload struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Class   string `json:"class"`
	Geo     string `json:"geo,omitempty"`
}

type userPayload struct {
	Ext userExt `json:"ext"`
}

type userExt struct {
	EIDs []eidPayload `json:"eids"`
}

type eidPayload struct {
	Source string       `json:"source"`
	UIDs   []uidPayload `json:"uids"`
}

type uidPayload struct {
	ID string `json:"id"`
}

// Classify requests segments for req under the client's own deadline.
// Every failure mode — deadline exceeded, transport error, non-success
// status, malformed response — degrades to empty segments; errors are logged
// and never propagate.
func (c *Client) Classify(ctx context.Context, req Request) core.Segments {
	if c.cfg.URL == "" {
		return core.NewSegments()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(c.payload(req))
	if err != nil {
		slog.Warn("failed to marshal classification request", "error", err)
		return core.NewSegments()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		slog.Warn("failed to build classification request", "error", err)
		return core.NewSegments()
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Warn("classification call failed", "url", req.URL, "error", err)
		return core.NewSegments()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("classification call returned non-success status",
			"url", req.URL, "status", resp.StatusCode)
		return core.NewSegments()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("failed to read classification response", "url", req.URL, "error", err)
		return core.NewSegments()
	}

	return parseSegments(respBody)
}

func (c *Client) payload(req Request) classifyPayload {
	p := classifyPayload{
		Site: sitePayload{
			Domain: hostOf(string(req.URL)),
			Page:   string(req.URL),
			Ext: siteExt{
				ETag:         req.Validators.ETag,
				LastModified: req.Validators.LastModified,
			},
		},
		Imp: []impPayload{{ID: core.GlobalSlot}},
		Device: devicePayload{
			Browser: req.Device.Browser,
			OS:      req.Device.OS,
			Class:   req.Device.Class,
			Geo:     req.Geo,
		},
	}

	if len(req.Identities) > 0 {
		eids := make([]eidPayload, 0, len(req.Identities))
		for _, t := range req.Identities {
			eids = append(eids, eidPayload{
				Source: t.Source,
				UIDs:   []uidPayload{{ID: t.ID}},
			})
		}
		p.User = &userPayload{Ext: userExt{EIDs: eids}}
	}

	return p
}

// parseSegments extracts per-slot label arrays from a classification
// response. Expected shape is {"segments": [{"slot": "...", "labels":
// ["..."]}]}, optionally nested under "data"; anything unrecognized degrades
// to empty segments rather than failing.
func parseSegments(body []byte) core.Segments {
	segs := core.NewSegments()

	list := gjson.GetBytes(body, "segments")
	if !list.Exists() {
		list = gjson.GetBytes(body, "data.segments")
	}
	if !list.IsArray() {
		return segs
	}

	list.ForEach(func(_, item gjson.Result) bool {
		slot := item.Get("slot").String()
		if slot == "" {
			slot = core.GlobalSlot
		}
		labels := segs[slot]
		if labels == nil {
			labels = []string{}
		}
		item.Get("labels").ForEach(func(_, label gjson.Result) bool {
			if s := label.String(); s != "" {
				labels = append(labels, s)
			}
			return true
		})
		segs[slot] = labels
		return true
	})

	return segs.Normalize()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
