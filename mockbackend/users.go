package mockbackend

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// User is an account of the mock backend. Every user owns one business.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	BusinessID   string    `json:"wydelyBusinessId"`
	BusinessName string    `json:"businessName"`
	Verified     bool      `json:"-"`
	DateJoined   time.Time `json:"-"`
}

// ValidatePasswordStrength requires 8 characters with upper, lower and a digit.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserRepo stores mock backend accounts keyed by email.
type UserRepo interface {
	Create(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(id string) (*User, error)
	SetVerified(email string, verified bool) error
}

var _ UserRepo = (*memoryUserRepo)(nil)

type memoryUserRepo struct {
	users    map[string]*User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:    make(map[string]*User),
		emailIds: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ur *memoryUserRepo) Create(user *User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := normalizeEmail(user.Email)
	if _, ok := ur.emailIds[email]; ok {
		return apperrors.ErrUserExists
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.BusinessID == "" {
		user.BusinessID = uuid.New().String()
	}
	user.Email = email
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[email] = user.ID
	return nil
}

func (ur *memoryUserRepo) GetByEmail(email string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[normalizeEmail(email)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	user := *ur.users[id]
	return &user, nil
}

func (ur *memoryUserRepo) GetByID(id string) (*User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	user := *u
	return &user, nil
}

func (ur *memoryUserRepo) SetVerified(email string, verified bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.emailIds[normalizeEmail(email)]
	if !ok {
		return apperrors.ErrNotFound
	}
	ur.users[id].Verified = verified
	return nil
}
