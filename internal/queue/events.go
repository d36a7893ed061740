package queue

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// KeyNotifyDue routes delayed pickup reminders to the notify worker.
	KeyNotifyDue = "pickup.notify.due"

	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
)

type UserRegistered struct {
	UserID   primitive.ObjectID `json:"user_id"`
	Email    string             `json:"email"`
	Name     string             `json:"name"`
	Provider string             `json:"provider,omitempty"`
}

type UserLoggedIn struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
}

// PickupNotificationDue is the payload of a delayed reminder job.
type PickupNotificationDue struct {
	PickupID    string    `json:"pickup_id"`
	WindowStart time.Time `json:"window_start"`
}
