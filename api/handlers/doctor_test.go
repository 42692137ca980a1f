package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/api/handlers"
	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/databases/mocks"
	"github.com/smartcareconnect/smartcare-api/models"
)

const doctorSignup = `{
	"fullName": "Bikash Rai",
	"address": "Kathmandu",
	"email": "rai@example.com",
	"phoneNumber": "9811111111",
	"nmcNumber": "NMC-1001",
	"citizenshipNumber": "27-01-123",
	"speciality": "Neurology",
	"password": "hunter22"
}`

func doctorHandler(conn *mocks.CollectionHelper) handlers.Doctor {
	db := &mocks.DatabaseHelper{}
	db.On("Collection", "doctors").Return(conn)
	return handlers.Doctor{DB: databases.NewDoctorDatabase(db)}
}

func doctorCursor(doctors []models.Doctor) *mocks.CursorHelper {
	cursor := &mocks.CursorHelper{}
	cursor.On("All", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Doctor)
		*arg = doctors
	})
	cursor.On("Close", mock.Anything).Return(nil)
	return cursor
}

func TestDoctor_RegisterDoctorHandler(t *testing.T) {
	conn := &mocks.CollectionHelper{}
	conn.On("Find", mock.Anything, mock.Anything).Return(doctorCursor(nil), nil)
	conn.On("InsertOne", mock.Anything, mock.Anything).Return(&mocks.InsertOneResultHelper{}, nil)
	d := doctorHandler(conn)

	rr := httptest.NewRecorder()
	http.HandlerFunc(d.RegisterDoctorHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/doctor-register", strings.NewReader(doctorSignup)))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "Doctor registered successfully")
	conn.AssertCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestDoctor_RegisterDoctorHandlerTaken(t *testing.T) {
	tests := []struct {
		name     string
		existing models.Doctor
		expected string
	}{
		{name: "email", existing: models.Doctor{Email: "rai@example.com"}, expected: "This email is already registered"},
		{name: "nmc", existing: models.Doctor{Email: "x@example.com", NMCNumber: "NMC-1001"}, expected: "This NMC number is already registered"},
		{name: "citizenship", existing: models.Doctor{Email: "x@example.com", CitizenshipNumber: "27-01-123"}, expected: "This citizenship number is already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mocks.CollectionHelper{}
			conn.On("Find", mock.Anything, mock.Anything).Return(doctorCursor([]models.Doctor{tt.existing}), nil)
			d := doctorHandler(conn)

			rr := httptest.NewRecorder()
			http.HandlerFunc(d.RegisterDoctorHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/doctor-register", strings.NewReader(doctorSignup)))

			assert.Equal(t, http.StatusConflict, rr.Code)
			assert.JSONEq(t, `{"error":"`+tt.expected+`"}`, rr.Body.String())
			conn.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
		})
	}
}

func TestDoctor_RegisterDoctorHandlerMissingFields(t *testing.T) {
	d := doctorHandler(&mocks.CollectionHelper{})

	rr := httptest.NewRecorder()
	http.HandlerFunc(d.RegisterDoctorHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/doctor-register", strings.NewReader(`{"fullName":"Bikash Rai"}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"All fields are required"}`, rr.Body.String())
}

func TestDoctor_LoginDoctorHandler(t *testing.T) {
	api.MiddlewareDB{}.SetupGoGuardian()
	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	single := &mocks.SingleResultHelper{}
	single.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Doctor)
		(*arg).ID = "d1"
		(*arg).Email = "rai@example.com"
		(*arg).Password = string(hashed)
	})
	conn := &mocks.CollectionHelper{}
	conn.On("FindOne", mock.Anything, bson.M{"email": "rai@example.com"}).Return(single)
	d := doctorHandler(conn)

	rr := httptest.NewRecorder()
	http.HandlerFunc(d.LoginDoctorHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/doctor-login", strings.NewReader(`{"email":"rai@example.com","password":"hunter22"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "d1", got.ID)
	assert.Equal(t, "doctor", got.Type)
	assert.NotEmpty(t, got.Token)

	rr = httptest.NewRecorder()
	http.HandlerFunc(d.LoginDoctorHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/doctor-login", strings.NewReader(`{"email":"rai@example.com","password":"nope"}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid email or password"}`, rr.Body.String())
}

func TestDoctor_DoctorByIDHandler(t *testing.T) {
	found := &mocks.SingleResultHelper{}
	found.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Doctor)
		(*arg).ID = "d1"
		(*arg).FullName = "Bikash Rai"
		(*arg).Password = "secret-hash"
	})
	missing := &mocks.SingleResultHelper{}
	missing.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn := &mocks.CollectionHelper{}
	conn.On("FindOne", mock.Anything, bson.M{"_id": "d1"}).Return(found)
	conn.On("FindOne", mock.Anything, bson.M{"_id": "d2"}).Return(missing)
	d := doctorHandler(conn)

	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/doctor/d1", nil), map[string]string{"id": "d1"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(d.DoctorByIDHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Bikash Rai")
	assert.NotContains(t, rr.Body.String(), "secret-hash")

	req = mux.SetURLVars(httptest.NewRequest("GET", "/api/doctor/d2", nil), map[string]string{"id": "d2"})
	rr = httptest.NewRecorder()
	http.HandlerFunc(d.DoctorByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Doctor not found"}`, rr.Body.String())
}

func TestDoctor_DoctorsHandler(t *testing.T) {
	conn := &mocks.CollectionHelper{}
	conn.On("Find", mock.Anything, bson.M{"speciality": "Neurology"}, mock.Anything).
		Return(doctorCursor([]models.Doctor{{ID: "d1"}, {ID: "d3"}}), nil)
	conn.On("Find", mock.Anything, bson.M{}, mock.Anything).Return(doctorCursor(nil), nil)
	d := doctorHandler(conn)

	rr := httptest.NewRecorder()
	http.HandlerFunc(d.DoctorsHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/doctors?speciality=Neurology", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []models.Doctor
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rr = httptest.NewRecorder()
	http.HandlerFunc(d.DoctorsHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/doctors", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestDoctor_CheckNMCHandler(t *testing.T) {
	conn := &mocks.CollectionHelper{}
	conn.On("Find", mock.Anything, bson.M{"nmc_number": "NMC-1001"}).Return(doctorCursor([]models.Doctor{{ID: "d1"}}), nil)
	conn.On("Find", mock.Anything, bson.M{"nmc_number": "NMC-2002"}).Return(doctorCursor(nil), nil)
	d := doctorHandler(conn)

	tests := []struct {
		query    string
		code     int
		expected string
	}{
		{query: "?nmcNumber=NMC-1001", code: http.StatusOK, expected: `{"isUnique":false}`},
		{query: "?nmcNumber=NMC-2002", code: http.StatusOK, expected: `{"isUnique":true}`},
		{query: "", code: http.StatusBadRequest, expected: `{"error":"NMC number is required"}`},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		http.HandlerFunc(d.CheckNMCHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/check-nmc"+tt.query, nil))

		assert.Equal(t, tt.code, rr.Code, tt.query)
		assert.JSONEq(t, tt.expected, rr.Body.String(), tt.query)
	}
}

func TestDoctor_CheckUniqueHandler(t *testing.T) {
	conn := &mocks.CollectionHelper{}
	conn.On("Find", mock.Anything, bson.M{"citizenship_number": "27-01-123"}).Return(doctorCursor([]models.Doctor{{ID: "d1"}}), nil)
	conn.On("Find", mock.Anything, bson.M{"email": "new@example.com"}).Return(doctorCursor(nil), nil)
	d := doctorHandler(conn)

	tests := []struct {
		name     string
		query    string
		code     int
		expected string
	}{
		{name: "taken", query: "?field=citizenshipNumber&value=27-01-123", code: http.StatusOK, expected: `{"isUnique":false,"error":"This citizenship number is already registered"}`},
		{name: "free", query: "?field=email&value=new@example.com", code: http.StatusOK, expected: `{"isUnique":true}`},
		{name: "missing value", query: "?field=email", code: http.StatusBadRequest, expected: `{"isUnique":false,"error":"Field and value parameters are required"}`},
		{name: "unknown field", query: "?field=password&value=x", code: http.StatusBadRequest, expected: `{"isUnique":false,"error":"Invalid field parameter"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			http.HandlerFunc(d.CheckUniqueHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/check-unique"+tt.query, nil))

			assert.Equal(t, tt.code, rr.Code)
			assert.JSONEq(t, tt.expected, rr.Body.String())
		})
	}
}

func TestDoctor_DoctorsHandlerPaged(t *testing.T) {
	conn := &mocks.CollectionHelper{}
	paged := mock.MatchedBy(func(o *options.FindOptions) bool {
		return o.Limit != nil && *o.Limit == 2 && o.Skip != nil && *o.Skip == 2
	})
	conn.On("Find", mock.Anything, bson.M{}, paged).Return(doctorCursor([]models.Doctor{{ID: "d3"}}), nil)
	d := doctorHandler(conn)

	rr := httptest.NewRecorder()
	http.HandlerFunc(d.DoctorsHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/doctors?limit=2&page=2", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "d3")
}
