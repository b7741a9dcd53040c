package services

import (
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"libraryledger/internal/models"
	"libraryledger/internal/repositories"
)

// Identity is the authenticated caller extracted from a bearer token. It is
// passed explicitly into handlers instead of living in any shared session
// state.
type Identity struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.UserRoleAdmin
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login and bearer-token verification.
type AuthService interface {
	Register(fullName, email, password string) (*models.User, error)
	Login(email, password string) (token string, user *models.User, err error)
	Authenticate(token string) (*Identity, error)
}

type authService struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(db *gorm.DB, userRepo repositories.UserRepository, secret string, tokenTTL time.Duration) AuthService {
	return &authService{
		db:       db,
		userRepo: userRepo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Register creates a member account with a bcrypt-hashed password.
func (s *authService) Register(fullName, email, password string) (*models.User, error) {
	if _, err := s.userRepo.GetByEmail(nil, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.UserRoleMember,
	}
	if err := s.userRepo.Create(nil, user); err != nil {
		log.Printf("[ERROR] Register: failed to create user %s: %v", email, err)
		return nil, err
	}
	log.Printf("[INFO] Register: user %s created (id=%s)", email, user.ID)
	return user, nil
}

// Login verifies the credentials and issues a signed HS256 token carrying the
// user id and role.
func (s *authService) Login(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := &tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}

	log.Printf("[INFO] Login: user %s authenticated (role=%s)", email, user.Role)
	return token, user, nil
}

// Authenticate verifies a bearer token and returns the caller's identity.
func (s *authService) Authenticate(token string) (*Identity, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role := models.UserRole(claims.Role)
	if role != models.UserRoleAdmin && role != models.UserRoleMember {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: userID, Role: role}, nil
}
