package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is a discoverable activity listing. CreatorName is denormalized
// from the creating user's username and rewritten when that username changes.
type Activity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Category     string             `bson:"category" json:"category"`
	Location     string             `bson:"location,omitempty" json:"location,omitempty"`
	Price        float64            `bson:"price" json:"price"`
	Participants int                `bson:"participants" json:"participants"`
	CreatedBy    primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatorName  string             `bson:"creatorName,omitempty" json:"creatorName,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
