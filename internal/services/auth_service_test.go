package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/amider/backend/internal/models"
)

func setAuthTestConfig() {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
}

func TestAuthService_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setAuthTestConfig()
	service := NewAuthService(db, nil)

	t.Run("successful registration opens a wallet", func(t *testing.T) {
		req := RegisterRequest{
			Email:       "moshe@example.com",
			Password:    "password123",
			FirstName:   "Moshe",
			LastName:    "Cohen",
			PhoneNumber: "+972501234567",
		}

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO messengers").
			WithArgs(sqlmock.AnyArg(), req.Email, sqlmock.AnyArg(), req.FirstName, req.LastName,
				req.PhoneNumber, models.RoleMessenger).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectExec("INSERT INTO messenger_accounts").
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, req.Email, response.Messenger.Email)
		assert.Equal(t, models.RoleMessenger, response.Messenger.Role)
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		req := RegisterRequest{
			Email:       "moshe@example.com",
			Password:    "12345",
			FirstName:   "Moshe",
			LastName:    "Cohen",
			PhoneNumber: "+972501234567",
		}

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setAuthTestConfig()
	service := NewAuthService(db, nil)

	t.Run("successful login", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, email, first_name, last_name, phone_number, role, password").
			WithArgs("moshe@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "phone_number", "role", "password"}).
				AddRow("messenger1", "moshe@example.com", "Moshe", "Cohen", "+972501234567", models.RoleMessenger, hashedPassword))
		mock.ExpectExec("UPDATE messengers SET last_login").
			WithArgs("messenger1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := LoginRequest{
			Email:    "moshe@example.com",
			Password: "password123",
		}

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, "messenger1", response.Messenger.ID)
	})

	t.Run("messenger not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, first_name, last_name, phone_number, role, password").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		req := LoginRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		}

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, email, first_name, last_name, phone_number, role, password").
			WithArgs("moshe@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "phone_number", "role", "password"}).
				AddRow("messenger1", "moshe@example.com", "Moshe", "Cohen", "+972501234567", models.RoleMessenger, hashedPassword))

		req := LoginRequest{
			Email:    "moshe@example.com",
			Password: "nope-nope-nope",
		}

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setAuthTestConfig()

	password := "testpassword"

	hashed, err := hashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashed)

	assert.True(t, verifyPassword(password, hashed))
	assert.False(t, verifyPassword("wrongpassword", hashed))
	assert.False(t, verifyPassword(password, "not-a-real-hash"))
}

func TestGenerateJWT(t *testing.T) {
	setAuthTestConfig()

	tokenString, err := generateJWT("messenger1", models.RoleAdmin)
	assert.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	assert.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "messenger1", claims["messenger_id"])
	assert.Equal(t, models.RoleAdmin, claims["role"])
}
