package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"

	STATUS_PENDING  = "pending"
	STATUS_APPROVED = "approved"
	STATUS_DISABLED = "disabled"
)

// User is an employee in the directory. New accounts start as pending and
// only become eligible for document synchronization once approved.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Email      string     `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password   string     `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role       string     `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status     string     `gorm:"type:varchar(50);default:'pending'" json:"status" validate:"oneof=pending approved disabled"`
	APIKeyHash string     `gorm:"type:varchar(64);default:null;index" json:"-"`
	ApprovedAt *time.Time `gorm:"type:timestamp;default:null" json:"approved_at,omitempty"`
	ApprovedBy *uint      `gorm:"default:null" json:"approved_by,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// BeforeSave canonicalizes the email so webhook matching by address is
// case-insensitive (stored lowercase, compared lowercase).
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = CanonicalEmail(u.Email)
	return nil
}

// CanonicalEmail is the single normalization rule for employee addresses:
// trim surrounding whitespace and lowercase. No alias stripping.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func CreateUser(name string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    CanonicalEmail(email),
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_PENDING,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// HashAPIKey returns the hex SHA-256 digest stored for API key lookups.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsApproved reports whether the employee participates in document sync.
func (u *User) IsApproved() bool {
	return u.Status == STATUS_APPROVED
}

// IsAdmin reports whether the user has administrative rights. Admins are
// excluded from mandatory-document tracking.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// Approve marks the employee approved and records who did it.
func (u *User) Approve(adminID uint) {
	now := time.Now()
	u.Status = STATUS_APPROVED
	u.ApprovedAt = &now
	u.ApprovedBy = &adminID
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}
