// Package upstream issues GET requests against third-party JSON APIs and
// classifies the outcome. Classification is table-driven: each resource type
// carries a Descriptor naming the field path expected on success and the
// status codes that read as benign-empty or access-restricted rather than as
// failures.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Kind tags the classified outcome of a fetch.
type Kind int

const (
	// Success means HTTP 200 with the expected field present.
	Success Kind = iota
	// Empty means the upstream has no data for a legitimate reason, e.g. a
	// private profile or a game with no stats. Never cached.
	Empty
	// Forbidden means the upstream reports the resource as access-restricted.
	Forbidden
	// Error is anything else: connection failure, malformed JSON, an
	// unexpected status. Surfaced to callers as a generic failure.
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Empty:
		return "empty"
	case Forbidden:
		return "forbidden"
	default:
		return "error"
	}
}

// Descriptor parameterizes classification per resource type.
type Descriptor struct {
	// Resource names the resource type in logs and error messages.
	Resource string
	// Field is the path of the top-level field(s) whose presence marks a
	// non-empty success payload, e.g. ["response", "games"].
	Field []string
	// EmptyStatuses are non-200 codes treated as a legitimate empty state.
	// The Steam achievements endpoint answers 400 for games without stats.
	EmptyStatuses []int
	// ForbiddenStatuses are codes meaning the subject restricted access.
	ForbiddenStatuses []int
}

// Result is the outcome of a single fetch.
type Result struct {
	Kind       Kind
	StatusCode int
	// Body is the raw response body. Callers decode it on Success; on Error
	// it is logged by the caller, never returned to clients.
	Body []byte
	Err  error
}

const snippetLen = 200

// Fetch performs one GET with no retries and classifies the response.
// Connection-level failures come back as Error with no status code.
func Fetch(ctx context.Context, client *resty.Client, url string, d Descriptor) Result {
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return Result{Kind: Error, Err: fmt.Errorf("%s: request failed: %w", d.Resource, err)}
	}
	return Classify(d, resp.StatusCode(), resp.Body())
}

// Classify maps a status code and body to an outcome per the descriptor.
// Exported separately so the policy is unit-testable without network calls.
func Classify(d Descriptor, status int, body []byte) Result {
	if !json.Valid(body) {
		return Result{
			Kind:       Error,
			StatusCode: status,
			Body:       body,
			Err:        fmt.Errorf("%s: status %d: invalid JSON: %s", d.Resource, status, snippet(body)),
		}
	}

	if status != http.StatusOK {
		switch {
		case containsStatus(d.EmptyStatuses, status):
			return Result{Kind: Empty, StatusCode: status, Body: body}
		case containsStatus(d.ForbiddenStatuses, status):
			return Result{Kind: Forbidden, StatusCode: status, Body: body}
		default:
			return Result{
				Kind:       Error,
				StatusCode: status,
				Body:       body,
				Err:        fmt.Errorf("%s: unexpected status %d: %s", d.Resource, status, snippet(body)),
			}
		}
	}

	if !hasField(body, d.Field) {
		return Result{Kind: Empty, StatusCode: status, Body: body}
	}
	return Result{Kind: Success, StatusCode: status, Body: body}
}

func containsStatus(codes []int, status int) bool {
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

// hasField walks the JSON object along path and reports whether the final
// field is present and non-null.
func hasField(body []byte, path []string) bool {
	cur := json.RawMessage(body)
	for _, field := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return false
		}
		next, ok := obj[field]
		if !ok {
			return false
		}
		cur = next
	}
	return !bytes.Equal(bytes.TrimSpace(cur), []byte("null"))
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetLen {
		s = s[:snippetLen] + "..."
	}
	return s
}
