package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/CrowderSoup/spearmint/database"
)

var (
	ErrMissingFields      = errors.New("Missing required fields")
	ErrEmailTaken         = errors.New("User already exists with this email. Try registering with a different one.")
	ErrUsernameTaken      = errors.New("Username already taken. Try registering with a different one.")
	ErrMissingCredentials = errors.New("Missing username or password")
	ErrUserNotFound       = errors.New("User not found")
	ErrWrongPassword      = errors.New("Incorrect password")
)

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService checks registrations and logins against the users collection.
// Passwords are compared as stored; there is no hashing and no token issued.
type AuthService struct {
	store database.Store
}

func NewAuthService(store database.Store) *AuthService {
	return &AuthService{store: store}
}

// Register creates a user when every field is present and both the email
// and the username are unused.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) error {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Fullname) == "" ||
		req.Password == "" || strings.TrimSpace(req.Username) == "" {
		return ErrMissingFields
	}

	exists, err := s.exists(ctx, "email", req.Email)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("User already exists with email: %s", req.Email)
		return ErrEmailTaken
	}

	user := database.UserProfile{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Fullname: req.Fullname,
	}

	// The username check and the insert happen together; the email check
	// above remains a best-effort read.
	_, err = s.store.InsertUnique(ctx, database.UsersCollection, user, database.Where("username", req.Username))
	if errors.Is(err, database.ErrConflict) {
		log.Printf("User already exists with username: %s", req.Username)
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("User registered: %s", req.Email)
	return nil
}

// Login returns the profile for a matching username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (database.UserProfile, error) {
	if username == "" || password == "" {
		return database.UserProfile{}, ErrMissingCredentials
	}

	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return database.UserProfile{}, err
	}
	if user.Password != password {
		log.Printf("Incorrect password for: %s", username)
		return database.UserProfile{}, ErrWrongPassword
	}

	log.Printf("User logged in: %s", username)
	user.Password = ""
	return user, nil
}

// FindByUsername looks a user up by username.
func (s *AuthService) FindByUsername(ctx context.Context, username string) (database.UserProfile, error) {
	var users []database.UserProfile
	if err := s.store.Find(ctx, database.UsersCollection, database.Where("username", username).Take(1), &users); err != nil {
		return database.UserProfile{}, fmt.Errorf("failed to query users: %w", err)
	}
	if len(users) == 0 {
		log.Printf("User not found: %s", username)
		return database.UserProfile{}, ErrUserNotFound
	}
	return users[0], nil
}

func (s *AuthService) exists(ctx context.Context, field, value string) (bool, error) {
	var users []database.UserProfile
	if err := s.store.Find(ctx, database.UsersCollection, database.Where(field, value).Take(1), &users); err != nil {
		return false, fmt.Errorf("failed to query users: %w", err)
	}
	return len(users) > 0, nil
}
