// Package ping implements the AIJay API health check.
package ping

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// ServiceName is reported in every payload.
const ServiceName = "AIJay API"

// Response is the health-check payload.
type Response struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	TS      int64  `json:"ts"`
}

// Handler answers every invocation with a static health payload. The event is
// never inspected.
type Handler struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Handler using the wall clock.
func New() *Handler {
	return &Handler{Now: time.Now}
}

// Payload returns the response body for the current instant.
func (h *Handler) Payload() Response {
	now := time.Now
	if h != nil && h.Now != nil {
		now = h.Now
	}
	return Response{OK: true, Service: ServiceName, TS: now().UnixMilli()}
}

// Handle is the Lambda entry point. It never returns an error.
func (h *Handler) Handle(_ context.Context, _ json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
	body, _ := json.Marshal(h.Payload())
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(body),
	}, nil
}
