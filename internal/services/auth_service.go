package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/amider/backend/internal/models"
)

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *validator.Validate
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"messenger@example.com"` // Messenger email
	Password string `json:"password" validate:"required,min=6" example:"password123"`        // Messenger password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email" example:"messenger@example.com"` // Messenger email address
	Password    string `json:"password" validate:"required,min=6" example:"password123"`        // Messenger password
	FirstName   string `json:"firstName" validate:"required,min=2" example:"Moshe"`             // First name
	LastName    string `json:"lastName" validate:"required,min=2" example:"Cohen"`              // Last name
	PhoneNumber string `json:"phoneNumber" validate:"required" example:"+972501234567"`         // Phone number
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token     string           `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	Messenger models.Messenger `json:"messenger"`                                               // Messenger information
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: validator.New(),
	}
}

// Register handles messenger registration
// @Summary Register a new messenger
// @Description Register a messenger and open their commission wallet
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 409 {string} string "Email already exists"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	log.Printf("[AUTH] Registration request for email: %s", req.Email)

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	messengerID := uuid.New().String()

	// Messenger row and wallet row land together: a messenger without a
	// wallet could never be credited.
	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[AUTH] Transaction start failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create messenger", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	var createdAt time.Time
	err = tx.QueryRow(`
		INSERT INTO messengers (id, email, password, first_name, last_name, phone_number, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		messengerID, strings.ToLower(req.Email), hashedPassword,
		req.FirstName, req.LastName, req.PhoneNumber, models.RoleMessenger).Scan(&createdAt)
	if err != nil {
		log.Printf("[AUTH] Messenger creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
		return
	}

	_, err = tx.Exec(`
		INSERT INTO messenger_accounts (messenger_id, balance, reserved, updated_at)
		VALUES ($1, 0, 0, NOW())`, messengerID)
	if err != nil {
		log.Printf("[AUTH] Wallet creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create wallet", http.StatusInternalServerError, nil)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[AUTH] Transaction commit failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create messenger", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Messenger created successfully - ID: %s, Email: %s", messengerID, req.Email)

	token, err := generateJWT(messengerID, models.RoleMessenger)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for messenger %s: %v", messengerID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	response := AuthResponse{
		Token: token,
		Messenger: models.Messenger{
			ID:          messengerID,
			Email:       strings.ToLower(req.Email),
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.PhoneNumber,
			Role:        models.RoleMessenger,
			CreatedAt:   createdAt,
		},
	}

	log.Printf("[AUTH] Registration successful for messenger %s", messengerID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Login handles messenger authentication
// @Summary Login messenger
// @Description Authenticate a messenger with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 401 {string} string "Invalid credentials"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	log.Printf("[AUTH] Login request for email: %s", req.Email)

	var messenger models.Messenger
	var hashedPassword string
	err := s.db.QueryRow(`
		SELECT id, email, first_name, last_name, phone_number, role, password
		FROM messengers WHERE email = $1`, strings.ToLower(req.Email)).Scan(
		&messenger.ID, &messenger.Email, &messenger.FirstName, &messenger.LastName,
		&messenger.PhoneNumber, &messenger.Role, &hashedPassword)
	if err != nil {
		log.Printf("[AUTH] Messenger not found for email: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for messenger: %s", req.Email)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	log.Printf("[AUTH] Password verified for messenger ID: %s", messenger.ID)

	if _, err := s.db.Exec(`UPDATE messengers SET last_login = NOW() WHERE id = $1`, messenger.ID); err != nil {
		log.Printf("[AUTH] Failed to record last login for %s: %v", messenger.ID, err)
	}

	token, err := generateJWT(messenger.ID, messenger.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for messenger %s: %v", messenger.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	response := AuthResponse{
		Token:     token,
		Messenger: messenger,
	}

	log.Printf("[AUTH] Login successful for messenger %s", messenger.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Logout handles messenger logout
// @Summary Logout messenger
// @Description Logout messenger and blacklist token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// GetProfile retrieves messenger details from auth token
// @Summary Get messenger profile
// @Description Get the authenticated messenger's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Messenger "Messenger profile"
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/profile [get]
func (s *AuthService) GetProfile(w http.ResponseWriter, r *http.Request) {
	messengerID, ok := r.Context().Value("messengerID").(string)
	if !ok || messengerID == "" {
		log.Printf("[AUTH] Unauthorized profile request - no messenger ID in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var messenger models.Messenger
	err := s.db.QueryRow(`
		SELECT id, email, first_name, last_name, phone_number, role, last_login, created_at, updated_at
		FROM messengers WHERE id = $1`, messengerID).Scan(
		&messenger.ID, &messenger.Email, &messenger.FirstName, &messenger.LastName,
		&messenger.PhoneNumber, &messenger.Role, &messenger.LastLogin,
		&messenger.CreatedAt, &messenger.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[AUTH] Messenger not found for ID: %s", messengerID)
			http.Error(w, "Messenger not found", http.StatusNotFound)
		} else {
			log.Printf("[AUTH] Failed to fetch messenger details for ID %s: %v", messengerID, err)
			http.Error(w, "Failed to fetch messenger details", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messenger)
}

func generateJWT(messengerID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"messenger_id": messengerID,
		"role":         role,
		"exp":          time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
