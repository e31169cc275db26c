package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender values accepted on an appointment request. Anything else collapses
// to GenderOther before the record is persisted.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Patient is one appointment request submitted through the hospital site.
// Records are written once and never updated or deleted by this service.
type Patient struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Fullname        string             `bson:"fullname" json:"fullname"`
	Phone           string             `bson:"phone" json:"phone"`
	Email           string             `bson:"email,omitempty" json:"email,omitempty"`
	Age             int                `bson:"age,omitempty" json:"age,omitempty"`
	Gender          string             `bson:"gender" json:"gender"`
	Address         string             `bson:"address,omitempty" json:"address,omitempty"`
	Complaint       string             `bson:"complaint,omitempty" json:"complaint,omitempty"`
	PreferredDoctor string             `bson:"preferredDoctor,omitempty" json:"preferredDoctor,omitempty"`
	PreferredDate   *time.Time         `bson:"preferredDate,omitempty" json:"preferredDate,omitempty"`
	ReportFile      string             `bson:"reportFile,omitempty" json:"reportFile,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// NormalizeGender maps free-form input onto the enumeration, defaulting to
// Other for empty or unknown values.
func NormalizeGender(raw string) string {
	switch raw {
	case GenderMale, GenderFemale, GenderOther:
		return raw
	default:
		return GenderOther
	}
}
