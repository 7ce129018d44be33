package model

import (
	"time"
)

type UserRole string

const (
	Beneficiary UserRole = "beneficiary"
	Consultant  UserRole = "consultant"
	Admin       UserRole = "admin"
)

type User struct {
	BaseModel
	Name           string    `gorm:"size:100;not null" json:"name"`
	Email          string    `gorm:"size:100;unique;not null" json:"email"`
	Password       string    `gorm:"size:100;not null" json:"-"`
	Role           UserRole  `gorm:"type:enum('beneficiary','consultant','admin');default:'beneficiary'" json:"role"`
	OrganizationID *uint     `gorm:"index" json:"organizationId,omitempty"`
	Language       string    `gorm:"size:10;default:'fr'" json:"language"`
	Avatar         string    `gorm:"size:255" json:"avatar"`
	Disabled       bool      `gorm:"default:false" json:"disabled"`
	LastLogin      time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

type Organization struct {
	BaseModel
	Name    string `gorm:"size:255;not null" json:"name"`
	SIRET   string `gorm:"size:20" json:"siret"`
	Address string `gorm:"type:text" json:"address"`
}

func (Organization) TableName() string {
	return "organizations"
}
