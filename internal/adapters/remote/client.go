package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/aoiexplorer/internal/pkg/geospatial"
	"github.com/samirrijal/aoiexplorer/internal/pkg/telemetry"
)

// maxRemoteMessage bounds error text copied from a remote body.
const maxRemoteMessage = 200

// StatusError is returned for non-2xx answers from the remote API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("remote returned %d", e.Code)
}

// Client implements ports.QueryTransport against an HTTP statistics API.
// Fetch POSTs the AOI as a GeoJSON Polygon to BaseURL/<endpoint>.
type Client struct {
	baseURL  string
	pingPath string
	timeout  time.Duration
	http     *fasthttp.Client
	tracer   trace.Tracer
}

// NewClient creates a client. timeout bounds calls whose context carries no deadline.
func NewClient(baseURL, pingPath string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pingPath: pingPath,
		timeout:  timeout,
		http: &fasthttp.Client{
			Name:            "aoi-explorer",
			MaxConnsPerHost: 64,
			ReadTimeout:     timeout,
			WriteTimeout:    timeout,
		},
		tracer: telemetry.Tracer(),
	}
}

// Fetch requests statistics for ring from endpointID.
func (c *Client) Fetch(ctx context.Context, endpointID string, ring orb.Ring) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanRemoteFetch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("endpoint", endpointID)),
	)
	defer span.End()

	body, err := geospatial.MarshalRing(ring)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("encode aoi: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/" + endpointID)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/geo+json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.SetBody(body)

	if err := c.do(ctx, req, resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status < 200 || status > 299 {
		serr := &StatusError{Code: status, Message: remoteMessage(resp.Body())}
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}

	payload := resp.Body()
	if len(payload) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(payload) {
		err := errors.New("remote returned a non-JSON body")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// The response body is recycled on release.
	return append(json.RawMessage(nil), payload...), nil
}

// Ping checks the remote API answers on its ping path.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanRemotePing, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + c.pingPath)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if err := c.do(ctx, req, resp); err != nil {
		span.RecordError(err)
		return err
	}
	if status := resp.StatusCode(); status < 200 || status > 299 {
		return &StatusError{Code: status, Message: remoteMessage(resp.Body())}
	}
	return nil
}

func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return fmt.Errorf("request to %s timed out", req.URI().String())
		}
		return fmt.Errorf("request to %s: %w", req.URI().String(), err)
	}
	return nil
}

// remoteMessage extracts a human readable message from an error body.
func remoteMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		switch v := parsed.Error.(type) {
		case string:
			return v
		case map[string]any:
			if msg, ok := v["message"].(string); ok {
				return msg
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)), maxRemoteMessage)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
