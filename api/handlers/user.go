package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/config"
	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/email"
	"github.com/smartcareconnect/smartcare-api/models"
)

// User exported for testing purposes
type User struct {
	DB     databases.UserDatabase
	Mailer email.Sender
}

// RegisterHandler creates a patient account
func (u User) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("All fields are required", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("All fields are required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	switch {
	case err == nil:
		config.ErrorStatus("This email is already registered", http.StatusConflict, w, nil)
		return
	case !errors.Is(err, mongo.ErrNoDocuments):
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}

	user := models.User{
		ID:        uuid.New().String(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hashed),
	}
	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}

	welcome(r.Context(), u.Mailer, req.FirstName+" "+req.LastName, req.Email)
	api.WriteJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully", "id": user.ID})
}

// LoginHandler checks a patient's password and issues a bearer token
func (u User) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || validate.Struct(req) != nil {
		config.ErrorStatus("Email and password are required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("Invalid email or password", http.StatusUnauthorized, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("Invalid email or password", http.StatusUnauthorized, w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		Token:   api.IssueToken(r, user.Email, user.ID),
		ID:      user.ID,
		Type:    string(models.SenderPatient),
	})
}

// welcome greets a new account in the background, failures are only logged
func welcome(ctx context.Context, mailer email.Sender, name, address string) {
	if mailer == nil {
		return
	}
	ctx, cancel := api.Detached(ctx)
	go func() {
		defer cancel()
		if err := email.SendWelcome(ctx, mailer, name, address); err != nil {
			zap.S().Warnw("failed to send welcome email", "to", address, "error", err)
		}
	}()
}
