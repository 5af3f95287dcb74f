package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"agromart/internal/apperr"
	"agromart/internal/models"
	"agromart/internal/storage"
)

var (
	farmerCodeRe   = regexp.MustCompile(`^farmer00[1-9]$|^farmer010$`)
	deliveryCodeRe = regexp.MustCompile(`^delivery00[1-9]$|^delivery010$`)
)

// AuthService handles registration, login and token validation. User records
// live in the shared store under the usersData key.
type AuthService struct {
	store         storage.Store
	jwtSecret     []byte
	tokenDuration time.Duration
	mu            sync.Mutex
}

// NewAuthService creates a new AuthService.
func NewAuthService(store storage.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:         store,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
	}
}

func (s *AuthService) loadAll() ([]models.User, error) {
	var users []models.User
	if err := s.store.Get(storage.KeyUsers, &users); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return users, nil
}

// Register validates the role's secret code, hashes the password and appends
// the user. Usernames and emails must be unique.
func (s *AuthService) Register(user *models.User) error {
	var missing []string
	if user.Username == "" {
		missing = append(missing, "username")
	}
	if user.Email == "" {
		missing = append(missing, "email")
	}
	if user.Password == "" {
		missing = append(missing, "password")
	}
	if user.Role == "" {
		missing = append(missing, "role")
	}
	if user.Role != "" && user.Role != models.RoleWholesaler && user.SecretCode == "" {
		missing = append(missing, "secret_code")
	}
	if len(missing) > 0 {
		return apperr.NewValidation(missing...)
	}
	if !user.Role.Valid() {
		return apperr.NewValidation("role")
	}

	switch user.Role {
	case models.RoleFarmer:
		if !farmerCodeRe.MatchString(user.SecretCode) {
			return apperr.NewValidation("secret_code")
		}
	case models.RoleDeliveryMan:
		if !deliveryCodeRe.MatchString(user.SecretCode) {
			return apperr.NewValidation("secret_code")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadAll()
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.Username == user.Username {
			return fmt.Errorf("username '%s' already taken", user.Username)
		}
		if existing.Email == user.Email {
			return fmt.Errorf("email '%s' already registered", user.Email)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	users = append(users, *user)
	return s.store.Set(storage.KeyUsers, users)
}

// Login authenticates a user and returns a JWT token if successful.
func (s *AuthService) Login(username, password string) (string, error) {
	s.mu.Lock()
	users, err := s.loadAll()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	var user *models.User
	for i := range users {
		if users[i].Username == username {
			user = &users[i]
			break
		}
	}
	// Do not reveal whether the username exists.
	if user == nil {
		return "", fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(s.tokenDuration).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// ListDeliveryAgents returns users with the deliveryMan role, for the
// assignment picker.
func (s *AuthService) ListDeliveryAgents() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	agents := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleDeliveryMan {
			agents = append(agents, u)
		}
	}
	return agents, nil
}
