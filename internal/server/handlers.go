// Package server provides the HTTP surface of the relay.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"edgerelay/internal/classify"
	"edgerelay/internal/core"
	"edgerelay/internal/relay"
)

// Diagnostic response headers, purely for observability.
const (
	headerDocCache   = "X-Relay-Cache"
	headerSegCache   = "X-Relay-Seg-Cache"
	headerContentAge = "X-Relay-Content-Age"
	headerValidators = "X-Relay-Validators"
)

// Identity cookies consumed as opaque classification inputs.
const (
	cookieFirstParty = "_relay_uid"
	cookieThirdParty = "_relay_3p"
)

// Handler holds the HTTP handlers.
type Handler struct {
	orch          *relay.Orchestrator
	allowedOrigin string
}

// NewHandler creates a handler over the orchestrator.
func NewHandler(orch *relay.Orchestrator, allowedOrigin string) *Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &Handler{orch: orch, allowedOrigin: allowedOrigin}
}

// Relay handles GET /relay?url=... and GET /relay/*.
func (h *Handler) Relay(c echo.Context) error {
	start := time.Now()

	raw := c.QueryParam("url")
	if raw == "" {
		raw = c.Param("*")
	}
	target, err := NormalizeTarget(raw)
	if err != nil {
		requestsTotal.WithLabelValues("invalid").Inc()
		return errorPage(c, err)
	}

	ctx := core.WithRequestID(c.Request().Context(), c.Request().Header.Get("X-Request-Id"))
	res, err := h.orch.Fetch(ctx, target, requestContext(c))
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		slog.Warn("relay request failed",
			"request_id", core.GetRequestID(ctx),
			"target", target,
			"error", err,
		)
		return errorPage(c, err)
	}

	header := c.Response().Header()
	for k, vals := range res.Header {
		for _, v := range vals {
			header.Add(k, v)
		}
	}
	h.setCORS(header)

	header.Set(headerDocCache, string(res.DocCacheStatus))
	header.Set(headerSegCache, string(res.SegCacheStatus))
	header.Set(headerContentAge, strconv.Itoa(res.ContentAge))
	if res.NoValidators {
		header.Set(headerValidators, "none")
	}
	if res.ContentType != "" {
		header.Set(echo.HeaderContentType, res.ContentType)
	}

	docCacheTotal.WithLabelValues(string(res.DocCacheStatus)).Inc()
	segCacheTotal.WithLabelValues(string(res.SegCacheStatus)).Inc()
	requestsTotal.WithLabelValues("ok").Inc()
	requestDuration.Observe(time.Since(start).Seconds())

	err = c.Blob(res.StatusCode, res.ContentType, res.Body)

	// Deferred cache writes start only after the body is finalized, so they
	// never add latency to the response.
	h.orch.Finish(res)
	return err
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// setCORS overrides upstream CORS headers on every relayed response; all
// other upstream headers pass through untouched.
func (h *Handler) setCORS(header http.Header) {
	header.Set(echo.HeaderAccessControlAllowOrigin, h.allowedOrigin)
	header.Set(echo.HeaderAccessControlAllowMethods, "GET, OPTIONS")
	header.Set(echo.HeaderAccessControlAllowHeaders, "*")
	header.Set(echo.HeaderAccessControlExposeHeaders,
		strings.Join([]string{headerDocCache, headerSegCache, headerContentAge}, ", "))
}

// requestContext extracts the opaque classification inputs from the inbound
// request: coarse device from the user agent, coarse geo from edge headers,
// identity tokens from the relay cookies.
func requestContext(c echo.Context) relay.RequestContext {
	req := c.Request()

	geo := req.Header.Get("CF-IPCountry")
	if geo == "" {
		geo = req.Header.Get("X-Geo-Country")
	}

	var identities []classify.IdentityToken
	if ck, err := req.Cookie(cookieFirstParty); err == nil && ck.Value != "" {
		identities = append(identities, classify.IdentityToken{Source: "first-party", ID: ck.Value})
	}
	if ck, err := req.Cookie(cookieThirdParty); err == nil && ck.Value != "" {
		identities = append(identities, classify.IdentityToken{Source: "third-party", ID: ck.Value})
	}

	return relay.RequestContext{
		UserAgent:  req.UserAgent(),
		Geo:        geo,
		Identities: identities,
	}
}

// errorPage renders the terminal diagnostic page. Only origin failures
// without a cache fallback and unusable inbound URLs reach this point; every
// other failure mode is absorbed inside the pipeline.
func errorPage(c echo.Context, err error) error {
	status := http.StatusBadGateway
	message := "the origin could not be reached"

	var relayErr *core.RelayError
	if errors.As(err, &relayErr) {
		status = relayErr.HTTPStatusCode()
		if relayErr.Type == core.ErrorTypeInvalidRequest {
			message = "the requested URL could not be understood"
		}
	}

	body := "<!DOCTYPE html><html><head><title>Relay error</title></head><body>" +
		"<h1>" + strconv.Itoa(status) + "</h1><p>" + message + "</p></body></html>"
	return c.HTML(status, body)
}
