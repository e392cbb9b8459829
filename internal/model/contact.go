package model

import (
	"time"

	"gorm.io/datatypes"
)

// Contact is a visitor message from the public contact form.
type Contact struct {
	ID        uint              `gorm:"primarykey" json:"_id"`
	FirstName string            `gorm:"column:first_name;not null" json:"firstName"`
	LastName  string            `gorm:"column:last_name;not null" json:"lastName"`
	Email     string            `gorm:"column:email;not null;index" json:"email"`
	Subject   string            `gorm:"column:subject;not null" json:"subject"`
	Message   string            `gorm:"column:message;type:text;not null" json:"message"`
	Status    string            `gorm:"column:status;not null;default:pending;check:chk_contacts_status,status IN ('pending','responded')" json:"status"`
	Meta      datatypes.JSONMap `gorm:"column:meta" json:"-"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
