package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name                     string     `gorm:"column:name;not null"`
	Email                    string     `gorm:"column:email;uniqueIndex;not null"`
	Password                 string     `gorm:"column:password;not null" json:"-"`
	GoogleID                 *string    `gorm:"column:google_id;uniqueIndex"`
	FacebookID               *string    `gorm:"column:facebook_id;uniqueIndex"`
	ProfilePic               string     `gorm:"column:profile_pic"`
	IsVerified               bool       `gorm:"column:is_verified;not null;default:false"`
	VerificationToken        *string    `gorm:"column:verification_token" json:"-"`
	VerificationTokenExpires *time.Time `gorm:"column:verification_token_expires" json:"-"`
	ResetPasswordToken       *string    `gorm:"column:reset_password_token;index:idx_users_reset_token,where:reset_password_token IS NOT NULL" json:"-"`
	ResetPasswordExpires     *time.Time `gorm:"column:reset_password_expires" json:"-"`
	TokenVersion             int        `gorm:"column:token_version;default:1;not null"`
	LastLogin                *time.Time `gorm:"column:last_login"`
}

// ProviderID returns the linked identifier for provider, or "" when unlinked.
func (u *User) ProviderID(provider string) string {
	var id *string
	switch provider {
	case "google":
		id = u.GoogleID
	case "facebook":
		id = u.FacebookID
	}
	if id == nil {
		return ""
	}
	return *id
}
