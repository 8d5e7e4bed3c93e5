package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleCustomer is the only role this system assigns.
const RoleCustomer = "Customer"

// User is keyed by email. The record is created when the first OTP is
// requested; name, phone and password are filled in once, at registration.
// An unverified user never carries a password.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email" json:"email"`
	Name       string             `bson:"name,omitempty" json:"name,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Password   string             `bson:"password,omitempty" json:"-"`
	OTP        *string            `bson:"otp" json:"-"`
	OTPExpiry  *time.Time         `bson:"otpExpiry" json:"-"`
	IsVerified bool               `bson:"isVerified" json:"isVerified"`
	Role       string             `bson:"role" json:"role"`
}
