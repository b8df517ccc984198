package subdomains

import "time"

// RegisterRequest is the registration payload. Unknown fields are ignored
// to stay forward-compatible with extra caller fields.
type RegisterRequest struct {
	Name        string                 `json:"name" binding:"required"`
	CustomerID  string                 `json:"customerId" binding:"required"`
	PrototypeID string                 `json:"prototypeId"`
	TargetURL   string                 `json:"targetUrl" binding:"required"`
	ExpiresAt   *time.Time             `json:"expiresAt"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// UpdateRequest carries the mutable field subset; absent members are left
// unchanged, and anything outside this set is silently ignored
type UpdateRequest struct {
	Name      string                 `json:"name" binding:"required"`
	Status    *string                `json:"status"`
	TargetURL *string                `json:"targetUrl"`
	ExpiresAt *time.Time             `json:"expiresAt"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// DeleteRequest names the subdomain to remove
type DeleteRequest struct {
	Name string `json:"name" binding:"required"`
}

// DeleteResponse reports whether a row was removed
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}
