package ports

import (
	"context"
	"encoding/json"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
)

// GraphQLClient abstracts the upstream trace storage (SkyWalking OAP).
type GraphQLClient interface {
	// Do posts one GraphQL document and returns the "data" member of the
	// response. Transport failures, non-200 statuses and GraphQL "errors"
	// payloads are all returned as errors.
	Do(ctx context.Context, req domain.GraphQLRequest) (json.RawMessage, error)
}
