// Package nsi implements the NSI-CS v2 protocol engine: outbound SOAP
// request emission and templating, inbound callback ingestion and
// correlation, and namespace-stripped XML (un)marshalling.
package nsi

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/nsi-aura/internal/metrics"
)

// reserveHorizon is substituted for a null endTime: an open-ended
// reservation defaults to roughly 20 years out.
const reserveHorizon = 1040 * 7 * 24 * time.Hour

// Client issues the six outbound NSI messages against a single configured
// aggregator, and renders/parses their SOAP bodies.
type Client struct {
	providerURL    string
	providerNSAID  string
	requesterNSAID string
	replyToURL     string
	t              *transport
}

// NewClient constructs a Client bound to one aggregator endpoint.
func NewClient(providerURL, providerNSAID, requesterNSAID, replyToURL string, tlsCfg *tls.Config) *Client {
	return &Client{
		providerURL:    providerURL,
		providerNSAID:  providerNSAID,
		requesterNSAID: requesterNSAID,
		replyToURL:     replyToURL,
		t:              newTransport(tlsCfg, 5),
	}
}

// ReserveRequest carries everything the reserve template needs.
type ReserveRequest struct {
	Description         string
	GlobalReservationID uuid.UUID
	StartTime           *time.Time
	EndTime             *time.Time
	SourceStpID         string
	SourceVlan          int
	DestStpID           string
	DestVlan            int
	Bandwidth           int
	CorrelationID       uuid.UUID
}

// ReserveReply is the synchronous reply to a reserve call: just the
// provider-assigned connectionId. The eventual Confirmed/Failed/Timeout
// outcome arrives later as an async callback.
type ReserveReply struct {
	ConnectionID uuid.UUID
}

func (c *Client) Reserve(ctx context.Context, req ReserveRequest) (ReserveReply, error) {
	defer observeDuration("reserve", time.Now())

	start := time.Now().UTC()
	if req.StartTime != nil {
		start = req.StartTime.UTC()
	}
	end := start.Add(reserveHorizon)
	if req.EndTime != nil {
		end = req.EndTime.UTC()
	}

	body, err := render("reserve", map[string]any{
		"CorrelationID":       req.CorrelationID,
		"RequesterNSAID":      c.requesterNSAID,
		"ProviderNSAID":       c.providerNSAID,
		"ReplyToURL":          c.replyToURL,
		"GlobalReservationID": req.GlobalReservationID,
		"Description":         req.Description,
		"StartTime":           start.Format(time.RFC3339),
		"EndTime":             end.Format(time.RFC3339),
		"Bandwidth":           req.Bandwidth,
		"SourceSTP":           StpURN(req.SourceStpID, req.SourceVlan),
		"DestSTP":             StpURN(req.DestStpID, req.DestVlan),
	})
	if err != nil {
		return ReserveReply{}, err
	}

	resp, err := c.t.post(ctx, c.providerURL, body)
	if err != nil {
		return ReserveReply{}, err
	}

	reply, err := parseSyncReply(resp)
	if err != nil {
		return ReserveReply{}, err
	}

	connID, ok := findKey(reply, "connectionId").(uuid.UUID)
	if !ok {
		return ReserveReply{}, fmt.Errorf("nsi: reserve reply missing connectionId")
	}
	return ReserveReply{ConnectionID: connID}, nil
}

// simpleConnectionRequest covers reserveCommit, provision, release, and
// terminate: each carries only a connectionId and acks synchronously.
func (c *Client) simpleConnectionRequest(ctx context.Context, templateName string, connectionID, correlationID uuid.UUID) error {
	defer observeDuration(templateName, time.Now())

	body, err := render(templateName, map[string]any{
		"CorrelationID":  correlationID,
		"RequesterNSAID": c.requesterNSAID,
		"ProviderNSAID":  c.providerNSAID,
		"ReplyToURL":     c.replyToURL,
		"ConnectionID":   connectionID,
	})
	if err != nil {
		return err
	}

	resp, err := c.t.post(ctx, c.providerURL, body)
	if err != nil {
		return err
	}

	_, err = parseSyncReply(resp)
	return err
}

func (c *Client) ReserveCommit(ctx context.Context, connectionID, correlationID uuid.UUID) error {
	return c.simpleConnectionRequest(ctx, "reservecommit", connectionID, correlationID)
}

func (c *Client) Provision(ctx context.Context, connectionID, correlationID uuid.UUID) error {
	return c.simpleConnectionRequest(ctx, "provision", connectionID, correlationID)
}

func (c *Client) Release(ctx context.Context, connectionID, correlationID uuid.UUID) error {
	return c.simpleConnectionRequest(ctx, "release", connectionID, correlationID)
}

func (c *Client) Terminate(ctx context.Context, connectionID, correlationID uuid.UUID) error {
	return c.simpleConnectionRequest(ctx, "terminate", connectionID, correlationID)
}

// QuerySummary is the flattened snapshot returned by querySummarySync:
// enough to drive fsm.MapQuerySummary for the GUI's "Verify" repair flow.
type QuerySummary struct {
	ProvisionState  string
	DataPlaneActive bool
}

func (c *Client) QuerySummarySync(ctx context.Context, connectionID, correlationID uuid.UUID) (QuerySummary, error) {
	defer observeDuration("querysummarysync", time.Now())

	body, err := render("querysummarysync", map[string]any{
		"CorrelationID":  correlationID,
		"RequesterNSAID": c.requesterNSAID,
		"ProviderNSAID":  c.providerNSAID,
		"ReplyToURL":     c.replyToURL,
		"ConnectionID":   connectionID,
	})
	if err != nil {
		return QuerySummary{}, err
	}

	resp, err := c.t.post(ctx, c.providerURL, body)
	if err != nil {
		return QuerySummary{}, err
	}

	flat, err := Flatten(resp)
	if err != nil {
		return QuerySummary{}, err
	}

	summary := findKey(flat, "querySummarySyncConfirmed")
	state, _ := findKey(summary, "provisionState").(string)
	dpActive := false
	if dps := findKey(summary, "dataPlaneStatus"); dps != nil {
		if m, ok := dps.(map[string]any); ok {
			if v, ok := m["active"].(string); ok {
				dpActive = v == "true"
			}
		}
	}
	return QuerySummary{ProvisionState: state, DataPlaneActive: dpActive}, nil
}

func observeDuration(message string, start time.Time) {
	metrics.NSIRequestDuration.WithLabelValues(message).Observe(time.Since(start).Seconds())
}

// findKey searches a (possibly nested) flattened XML map for the first
// occurrence of key at any depth, returning nil if absent.
func findKey(v any, key string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if val, ok := m[key]; ok {
		return val
	}
	for _, child := range m {
		if found := findKey(child, key); found != nil {
			return found
		}
	}
	return nil
}
