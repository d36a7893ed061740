package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the local identity record. Accounts created through an OAuth
// callback carry no password hash and can never authenticate by password.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Username        string             `bson:"username" json:"username"`
	Email           string             `bson:"email" json:"email"`
	PasswordHash    string             `bson:"password_hash,omitempty" json:"-"`
	ProfileImageURL string             `bson:"profile_image_url,omitempty" json:"profile_image_url,omitempty"`
	IsSuperuser     bool               `bson:"is_superuser" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

// HasPassword reports whether the account can use the password login path.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }
