package ulango

import "strings"

// DefaultKeyFunc derives a request key from the lowercased method and the
// URL, e.g. GET /users -> "get/users".
func DefaultKeyFunc(req *Request) string {
	return strings.ToLower(req.Method) + req.URL
}

// deriveKey resolves the identity key for a request. A per-request
// DuplicatedKey wins when it yields a non-empty string; otherwise the
// client's key function applies.
func (c *Client) deriveKey(req *Request) string {
	if req.DuplicatedKey != nil {
		if key := req.DuplicatedKey(req); key != "" {
			return key
		}
	}
	return c.keyFunc(req)
}
