package model

import "time"

// Registration is one row of the dev backend's registration table, keyed by
// Subject.
type Registration struct {
	ID           string    `json:"id"`
	Subject      string    `json:"sub"`
	Issuer       string    `json:"iss"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	RequestCount int64     `json:"request_count"`
}
