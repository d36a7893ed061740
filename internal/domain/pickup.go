package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	pickupIDPrefix       = "pik_"
	pickupIDSuffixLength = 22
)

// PickupAddress is owned 1:1 by its pickup and stored embedded.
type PickupAddress struct {
	Name          string `bson:"name" json:"name" binding:"required,max=100"`
	Phone         string `bson:"phone" json:"phone" binding:"required,max=50"`
	Email         string `bson:"email,omitempty" json:"email,omitempty" binding:"omitempty,email"`
	CompanyName   string `bson:"company_name,omitempty" json:"company_name,omitempty" binding:"max=100"`
	AddressLine1  string `bson:"address_line1" json:"address_line1" binding:"required,max=200"`
	AddressLine2  string `bson:"address_line2,omitempty" json:"address_line2,omitempty" binding:"max=200"`
	CityLocality  string `bson:"city_locality" json:"city_locality" binding:"required,max=100"`
	StateProvince string `bson:"state_province" json:"state_province" binding:"required,max=100"`
	PostalCode    string `bson:"postal_code" json:"postal_code" binding:"required,max=20"`
	CountryCode   string `bson:"country_code" json:"country_code" binding:"required,len=2"`
}

type ContactDetails struct {
	Name  string `bson:"name" json:"name" binding:"required"`
	Email string `bson:"email" json:"email" binding:"required,email"`
	Phone string `bson:"phone" json:"phone" binding:"required"`
}

type PickupWindow struct {
	StartAt time.Time `bson:"start_at" json:"start_at" binding:"required"`
	EndAt   time.Time `bson:"end_at" json:"end_at" binding:"required"`
}

// Pickup is a scheduling record. Only the API layer mutates it; the
// notification worker flips notification_sent and nothing else.
type Pickup struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PickupID          string             `bson:"pickup_id" json:"pickup_id"`
	LabelIDs          []string           `bson:"label_ids" json:"label_ids"`
	Contact           ContactDetails     `bson:"contact_details" json:"contact_details"`
	Notes             string             `bson:"pickup_notes,omitempty" json:"pickup_notes,omitempty"`
	Window            PickupWindow       `bson:"pickup_window" json:"pickup_window"`
	Address           PickupAddress      `bson:"pickup_address" json:"pickup_address"`
	NotificationJobID string             `bson:"notification_job_id,omitempty" json:"-"`
	NotificationSent  bool               `bson:"notification_sent" json:"-"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	CancelledAt       *time.Time         `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	DeletedAt         *time.Time         `bson:"deleted_at,omitempty" json:"-"`
	IsDeleted         bool               `bson:"is_deleted" json:"-"`
}

// NewPickupID generates an identifier in the pik_XXXX... format.
func NewPickupID() string {
	b := make([]byte, 17)
	_, _ = rand.Read(b)
	suffix := base64.RawURLEncoding.EncodeToString(b)
	if len(suffix) > pickupIDSuffixLength {
		suffix = suffix[:pickupIDSuffixLength]
	}
	return pickupIDPrefix + suffix
}
