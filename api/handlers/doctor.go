package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/config"
	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/email"
	"github.com/smartcareconnect/smartcare-api/models"
)

// uniqueFields maps the check-unique field names to stored fields and the
// message shown when a value is taken
var uniqueFields = map[string]struct {
	column string
	taken  string
}{
	"email":             {column: "email", taken: "This email is already registered"},
	"nmcNumber":         {column: "nmc_number", taken: "This NMC number is already registered"},
	"citizenshipNumber": {column: "citizenship_number", taken: "This citizenship number is already registered"},
}

// UniqueResponse answers the availability checks of the doctor sign up form
type UniqueResponse struct {
	IsUnique bool   `json:"isUnique"`
	Error    string `json:"error,omitempty"`
}

// Doctor exported for testing purposes
type Doctor struct {
	DB     databases.DoctorDatabase
	Mailer email.Sender
}

// RegisterDoctorHandler creates a doctor account
func (d Doctor) RegisterDoctorHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DoctorRegisterRequest
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

	taken, err := d.DB.Find(ctx, bson.M{"$or": bson.A{
		bson.M{"email": req.Email},
		bson.M{"nmc_number": req.NMCNumber},
		bson.M{"citizenship_number": req.CitizenshipNumber},
	}})
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	if len(taken) > 0 {
		config.ErrorStatus(takenMessage(taken[0], req), http.StatusConflict, w, nil)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}

	doctor := models.Doctor{
		ID:                uuid.New().String(),
		FullName:          req.FullName,
		Address:           req.Address,
		Email:             req.Email,
		PhoneNumber:       req.PhoneNumber,
		NMCNumber:         req.NMCNumber,
		CitizenshipNumber: req.CitizenshipNumber,
		Speciality:        req.Speciality,
		Password:          string(hashed),
		CreatedAt:         time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := d.DB.InsertOne(ctx, doctor); err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}

	welcome(r.Context(), d.Mailer, "Dr. "+req.FullName, req.Email)
	api.WriteJSON(w, http.StatusCreated, map[string]string{"message": "Doctor registered successfully", "id": doctor.ID})
}

func takenMessage(existing models.Doctor, req models.DoctorRegisterRequest) string {
	switch {
	case existing.Email == req.Email:
		return uniqueFields["email"].taken
	case existing.NMCNumber == req.NMCNumber:
		return uniqueFields["nmcNumber"].taken
	default:
		return uniqueFields["citizenshipNumber"].taken
	}
}

// LoginDoctorHandler checks a doctor's password and issues a bearer token
func (d Doctor) LoginDoctorHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || validate.Struct(req) != nil {
		config.ErrorStatus("Email and password are required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	doctor, err := d.DB.FindOne(ctx, bson.M{"email": req.Email})
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("Invalid email or password", http.StatusBadRequest, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doctor.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("Invalid email or password", http.StatusBadRequest, w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		Token:   api.IssueToken(r, doctor.Email, doctor.ID),
		ID:      doctor.ID,
		Type:    string(models.SenderDoctor),
	})
}

// DoctorByIDHandler returns one doctor's profile
func (d Doctor) DoctorByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	doctor, err := d.DB.FindOne(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("Doctor not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, doctor)
}

// DoctorsHandler lists doctors, optionally of one speciality
func (d Doctor) DoctorsHandler(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if s := r.URL.Query().Get("speciality"); s != "" {
		filter["speciality"] = s
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := databases.PageOptions(r.URL.Query().Get("limit"), r.URL.Query().Get("page")).
		SetSort(bson.M{"full_name": 1})
	doctors, err := d.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	if len(doctors) == 0 {
		doctors = []models.Doctor{}
	}
	api.WriteJSON(w, http.StatusOK, doctors)
}

// CheckNMCHandler reports whether no doctor holds an NMC number yet
func (d Doctor) CheckNMCHandler(w http.ResponseWriter, r *http.Request) {
	nmc := r.URL.Query().Get("nmcNumber")
	if nmc == "" {
		config.ErrorStatus("NMC number is required", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	found, err := d.DB.Find(ctx, bson.M{"nmc_number": nmc})
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, UniqueResponse{IsUnique: len(found) == 0})
}

// CheckUniqueHandler reports whether a sign up field value is still free
func (d Doctor) CheckUniqueHandler(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	value := r.URL.Query().Get("value")
	if field == "" || value == "" {
		api.WriteJSON(w, http.StatusBadRequest, UniqueResponse{Error: "Field and value parameters are required"})
		return
	}
	f, ok := uniqueFields[field]
	if !ok {
		api.WriteJSON(w, http.StatusBadRequest, UniqueResponse{Error: "Invalid field parameter"})
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	found, err := d.DB.Find(ctx, bson.M{f.column: value})
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	if len(found) > 0 {
		api.WriteJSON(w, http.StatusOK, UniqueResponse{Error: f.taken})
		return
	}
	api.WriteJSON(w, http.StatusOK, UniqueResponse{IsUnique: true})
}
