package domain

import "time"

// Institution is the issuing organization. One-to-one with its admin user:
// the admin registers the institution and is the only account that can issue
// or revoke its certificates.
type Institution struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	AdminID   string    `json:"admin_id" bson:"admin_id"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
