package faults

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// azureError is the error envelope shared by the Azure REST services.
type azureError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FromResponse builds a ProviderError from a non-2xx HTTP response.
// The body is decoded as an Azure error envelope when possible and the
// Retry-After header, in seconds or as an HTTP date, is carried over.
func FromResponse(provider string, status int, header http.Header, body []byte) *ProviderError {
	message := strings.TrimSpace(string(body))
	var envelope azureError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}

	pe := NewProviderError(provider, status, message)
	pe.Code = envelope.Error.Code
	if header != nil {
		pe.RetryAfter = parseRetryAfter(header.Get("Retry-After"), time.Now())
	}
	return pe
}

func parseRetryAfter(v string, now time.Time) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return secs
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return int(d.Round(time.Second) / time.Second)
		}
	}
	return 0
}
