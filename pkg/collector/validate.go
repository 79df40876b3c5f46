package collector

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

//go:embed openapi.yaml
var openAPISpec []byte

// maxBodyBytes bounds inbound request bodies.
const maxBodyBytes = 32 << 20

// requestValidator checks inbound bodies against the embedded OpenAPI document.
type requestValidator struct {
	doc *openapi3.T
}

func newRequestValidator(ctx context.Context) (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return &requestValidator{doc: doc}, nil
}

// readBody reads the request body, validates it against the operation at
// path and returns the raw bytes for decoding.
func (v *requestValidator) readBody(r *http.Request, path string) ([]byte, error) {
	pathItem := v.doc.Paths.Value(path)
	if pathItem == nil {
		return nil, fmt.Errorf("no openapi path %s", path)
	}
	op := pathItem.GetOperation(r.Method)
	if op == nil {
		return nil, fmt.Errorf("no openapi operation %s %s", r.Method, path)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	input := &openapi3filter.RequestValidationInput{
		Request: r,
		Route: &routers.Route{
			Spec:      v.doc,
			Path:      path,
			PathItem:  pathItem,
			Method:    r.Method,
			Operation: op,
		},
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return body, nil
}
