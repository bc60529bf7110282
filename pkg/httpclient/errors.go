package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UpstreamError describes a non-2xx answer from an external API.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Message)
}

// IsClientError reports whether the upstream rejected the request itself
// (4xx) rather than failing.
func (e *UpstreamError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// ParseResponseError consumes and closes resp.Body and returns an
// *UpstreamError. Bodies shaped like {"error":{"message":"..."}} contribute
// their message; anything else is included raw, truncated to 1 KiB.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	var structured struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := string(body)
	if json.Unmarshal(body, &structured) == nil && structured.Error != nil {
		msg = structured.Error.Message
	} else if len(msg) > 1024 {
		msg = msg[:1024]
	}

	return &UpstreamError{Service: service, Status: resp.StatusCode, Message: msg}
}
