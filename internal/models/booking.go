package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventRegistration is a user's seat at a farm event.
type EventRegistration struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	EventID   primitive.ObjectID `bson:"eventId" json:"eventId"`
	Title     string             `bson:"title" json:"title"`
	Date      time.Time          `bson:"date" json:"date"`
	Location  string             `bson:"location" json:"location"`
	Tickets   int                `bson:"tickets" json:"tickets"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// WorkshopRegistration is a user's enrollment in a workshop.
type WorkshopRegistration struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	WorkshopID primitive.ObjectID `bson:"workshopId" json:"workshopId"`
	Title      string             `bson:"title" json:"title"`
	Instructor string             `bson:"instructor" json:"instructor"`
	Date       time.Time          `bson:"date" json:"date"`
	Seats      int                `bson:"seats" json:"seats"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Subscription is a recurring produce box plan.
type Subscription struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	PlanName  string             `bson:"planName" json:"planName"`
	Frequency string             `bson:"frequency" json:"frequency"`
	Price     float64            `bson:"price" json:"price"`
	Status    string             `bson:"status" json:"status"`
	StartDate time.Time          `bson:"startDate" json:"startDate"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
