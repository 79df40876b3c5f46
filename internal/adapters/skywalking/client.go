package skywalking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
	"github.com/docc-lab/skywalking-collector/internal/core/ports"
)

// maxResponseBytes bounds upstream response bodies.
const maxResponseBytes = 64 << 20

// Client posts GraphQL documents to a SkyWalking OAP /graphql endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	maxBody  int64
}

var _ ports.GraphQLClient = (*Client)(nil)

// NewClient creates a client for endpoint, e.g. http://localhost:12800/graphql.
// Deadlines come from the caller's context.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{},
		maxBody:  maxResponseBytes,
	}
}

// GraphQLError carries the upstream "errors" list verbatim.
type GraphQLError struct {
	Errors json.RawMessage
}

func (e *GraphQLError) Error() string {
	return "skywalking graphql errors: " + string(e.Errors)
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Do implements ports.GraphQLClient.
func (c *Client) Do(ctx context.Context, gqlReq domain.GraphQLRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(gqlReq)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("skywalking request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read skywalking response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("skywalking response exceeds %d bytes", c.maxBody)
	}

	var gqlResp graphQLResponse
	decodeErr := json.Unmarshal(body, &gqlResp)

	if decodeErr == nil && hasErrors(gqlResp.Errors) {
		return nil, &GraphQLError{Errors: gqlResp.Errors}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("skywalking returned status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode skywalking response: %w", decodeErr)
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return nil, fmt.Errorf("skywalking response has no data")
	}

	return gqlResp.Data, nil
}

func hasErrors(raw json.RawMessage) bool {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return len(raw) > 0 && string(raw) != "null"
	}
	return len(list) > 0
}
