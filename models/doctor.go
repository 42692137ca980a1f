package models

// Doctor holds the structure for the doctors collection in mongo
type Doctor struct {
	ID                string `json:"id" bson:"_id"`
	FullName          string `json:"full_name" bson:"full_name"`
	Address           string `json:"address" bson:"address"`
	Email             string `json:"email" bson:"email"`
	PhoneNumber       string `json:"phone_number" bson:"phone_number"`
	NMCNumber         string `json:"nmc_number" bson:"nmc_number"`
	CitizenshipNumber string `json:"citizenship_number" bson:"citizenship_number"`
	Speciality        string `json:"speciality" bson:"speciality"`
	Password          string `json:"-" bson:"password"`
	CreatedAt         string `json:"created_at" bson:"created_at"`
}

// DoctorRegisterRequest is the body of the doctor registration endpoint
type DoctorRegisterRequest struct {
	FullName          string `json:"fullName" validate:"required"`
	Address           string `json:"address" validate:"required"`
	Email             string `json:"email" validate:"required"`
	PhoneNumber       string `json:"phoneNumber" validate:"required"`
	NMCNumber         string `json:"nmcNumber" validate:"required"`
	CitizenshipNumber string `json:"citizenshipNumber" validate:"required"`
	Speciality        string `json:"speciality" validate:"required"`
	Password          string `json:"password" validate:"required"`
}
