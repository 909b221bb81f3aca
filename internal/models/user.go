package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// User is an end user of the storefront; IsAdmin grants the admin API.
type User struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string          `json:"name" gorm:"not null"`
	Email           string          `json:"email" gorm:"not null;uniqueIndex"`
	EmailVerifiedAt *time.Time      `json:"email_verified_at"`
	Password        string          `json:"-" gorm:"not null"`
	RememberToken   *string         `json:"-"`
	IsAdmin         bool            `json:"is_admin" gorm:"not null;default:false"`
	IsActive        bool            `json:"is_active" gorm:"not null"`
	Phone           *string         `json:"phone" gorm:"size:20"`
	Avatar          *string         `json:"avatar"`
	CPFCNPJ         *string         `json:"cpf_cnpj" gorm:"column:cpf_cnpj;size:20;uniqueIndex"`
	BirthDate       *datatypes.Date `json:"birth_date"`
	Gender          *Gender         `json:"gender"`
	Street          *string         `json:"street"`
	Number          *string         `json:"number" gorm:"size:20"`
	Complement      *string         `json:"complement"`
	Neighborhood    *string         `json:"neighborhood"`
	City            *string         `json:"city"`
	State           *string         `json:"state" gorm:"size:2"`
	ZipCode         *string         `json:"zip_code" gorm:"size:10"`
	LastLoginAt     *time.Time      `json:"last_login_at"`
	LastLoginIP     *string         `json:"last_login_ip" gorm:"column:last_login_ip"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

// BirthDateString renders birth_date as YYYY-MM-DD, nil when unset.
func (u *User) BirthDateString() *string {
	if u.BirthDate == nil {
		return nil
	}
	s := time.Time(*u.BirthDate).Format(DateLayout)
	return &s
}

// DateLayout is the wire format of date-only fields
const DateLayout = "2006-01-02"

// ParseDate parses a date-only field; an empty string clears the value.
func ParseDate(value string) (*datatypes.Date, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, err
	}
	d := datatypes.Date(t)
	return &d, nil
}

// RegisterRequest represents a registration payload
type RegisterRequest struct {
	Name                 string  `json:"name" form:"name" binding:"required,max=255"`
	Email                string  `json:"email" form:"email" binding:"required,email,max=255"`
	Password             string  `json:"password" form:"password" binding:"required,min=8"`
	PasswordConfirmation string  `json:"password_confirmation" form:"password_confirmation"`
	Phone                *string `json:"phone" form:"phone" binding:"omitempty,max=20"`
	CPFCNPJ              *string `json:"cpf_cnpj" form:"cpf_cnpj" binding:"omitempty,max=20"`
	BirthDate            *string `json:"birth_date" form:"birth_date" binding:"omitempty,datetime=2006-01-02"`
}

// LoginRequest represents a login payload
type LoginRequest struct {
	Email      string  `json:"email" form:"email" binding:"required,email"`
	Password   string  `json:"password" form:"password" binding:"required"`
	DeviceName *string `json:"device_name" form:"device_name" binding:"omitempty,max=255"`
}

// UpdateProfileRequest represents a partial profile update
type UpdateProfileRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email        *string `json:"email" binding:"omitempty,email,max=255"`
	Phone        *string `json:"phone" binding:"omitempty,max=20"`
	CPFCNPJ      *string `json:"cpf_cnpj" binding:"omitempty,max=20"`
	BirthDate    *string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Gender       *Gender `json:"gender" binding:"omitempty,oneof=male female other"`
	Street       *string `json:"street" binding:"omitempty,max=255"`
	Number       *string `json:"number" binding:"omitempty,max=20"`
	Complement   *string `json:"complement" binding:"omitempty,max=255"`
	Neighborhood *string `json:"neighborhood" binding:"omitempty,max=255"`
	City         *string `json:"city" binding:"omitempty,max=255"`
	State        *string `json:"state" binding:"omitempty,max=2"`
	ZipCode      *string `json:"zip_code" binding:"omitempty,max=10"`
}

// Apply copies the present fields onto user. BirthDate must already be validated.
func (r *UpdateProfileRequest) Apply(user *User) {
	if r.Name != nil {
		user.Name = *r.Name
	}
	if r.Email != nil {
		user.Email = *r.Email
	}
	if r.Phone != nil {
		user.Phone = r.Phone
	}
	if r.CPFCNPJ != nil {
		user.CPFCNPJ = emptyToNil(r.CPFCNPJ)
	}
	if r.BirthDate != nil {
		user.BirthDate, _ = ParseDate(*r.BirthDate)
	}
	if r.Gender != nil {
		if *r.Gender == "" {
			user.Gender = nil
		} else {
			user.Gender = r.Gender
		}
	}
	if r.Street != nil {
		user.Street = r.Street
	}
	if r.Number != nil {
		user.Number = r.Number
	}
	if r.Complement != nil {
		user.Complement = r.Complement
	}
	if r.Neighborhood != nil {
		user.Neighborhood = r.Neighborhood
	}
	if r.City != nil {
		user.City = r.City
	}
	if r.State != nil {
		user.State = r.State
	}
	if r.ZipCode != nil {
		user.ZipCode = r.ZipCode
	}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// ChangePasswordRequest represents a password change payload
type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" form:"current_password" binding:"required"`
	NewPassword             string `json:"new_password" form:"new_password" binding:"required,min=8"`
	NewPasswordConfirmation string `json:"new_password_confirmation" form:"new_password_confirmation"`
}

// ForgotPasswordRequest represents a password reset link request
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

// ResetPasswordRequest represents a password reset payload
type ResetPasswordRequest struct {
	Token                string `json:"token" form:"token" binding:"required"`
	Email                string `json:"email" form:"email" binding:"required,email"`
	Password             string `json:"password" form:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}
