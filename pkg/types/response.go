package types

import "encoding/json"

// SuccessEnvelope frames every 2xx storefront response. Data is kept raw so
// callers decode it into the operation's own payload type.
type SuccessEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
