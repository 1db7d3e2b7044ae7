// Package audit assembles and ships records of human-attributable actions.
// An event is emitted for a completed request only when an upstream stage
// recorded a user action for it; delivery is best-effort and never fails the
// originating request.
package audit

// Event is the audit record for one audited request. Field names are the
// fleet-wide wire schema shared by the broker topic and the REST audit
// service; absent string fields are shipped as the literal "null" to keep the
// schema fixed across transports.
type Event struct {
	ID             string `json:"id"`
	SessionID      string `json:"sessionId"`
	ProjectID      string `json:"projectId"`
	Service        string `json:"service"`
	Username       string `json:"username"`
	UserID         string `json:"userId"`
	URL            string `json:"url"`
	StartDate      int64  `json:"startDate"`
	HTTPMethod     string `json:"httpMethod"`
	ReferPage      string `json:"referPage"`
	IPAddress      string `json:"ipAddress"`
	UserAgent      string `json:"userAgent"`
	UserAction     string `json:"userAction"`
	HTTPStatusCode int    `json:"httpStatusCode"`
}
