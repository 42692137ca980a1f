package models

// User holds the structure for the users collection in mongo. Users are patients.
type User struct {
	ID        string `json:"id" bson:"_id"`
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Email     string `json:"email" bson:"email"`
	Password  string `json:"-" bson:"password"`
}

// RegisterRequest is the body of the patient registration endpoint
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// LoginRequest is the body of both login endpoints
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	ID      string `json:"id"`
	Type    string `json:"type"`
}
