/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package roadquery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/roadnet/roadkit/httpclient"
)

const maxErrorBodySize = 1024

var jsonNull = json.RawMessage("null")

// DecodeBatchResponse reads and closes the body of a batch lookup response.
// The lookup service answers with a JSON array holding one entry per record, in request order.
// A record that could not be looked up yields a null entry; IsNull reports it.
// Entries are returned undecoded, geometry interpretation is left to the caller.
func DecodeBatchResponse(resp *http.Response) ([]json.RawMessage, error) {
	defer func() { _ = resp.Body.Close() }()

	if err := checkEchoedRequestID(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &ResponseError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get(httpclient.RequestIDHeader),
			Body:       bytes.TrimSpace(body),
		}
	}

	var entries []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: top-level value is not an array", ErrMalformedResponse)
	}
	for i := range entries {
		if len(entries[i]) == 0 {
			entries[i] = jsonNull
		}
	}
	return entries, nil
}

// IsNull reports whether the entry is a failed lookup.
func IsNull(entry json.RawMessage) bool {
	return len(entry) == 0 || bytes.Equal(bytes.TrimSpace(entry), jsonNull)
}

// The service echoes the id only when it is a valid u64, so an absent header is not an error.
func checkEchoedRequestID(resp *http.Response) error {
	echoed := resp.Header.Get(httpclient.RequestIDHeader)
	if echoed == "" || resp.Request == nil {
		return nil
	}
	sent := resp.Request.Header.Get(httpclient.RequestIDHeader)
	if sent == "" || sent == echoed {
		return nil
	}
	return fmt.Errorf("%w: sent %s, received %s", ErrRequestIDMismatch, sent, echoed)
}
