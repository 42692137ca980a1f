package databases

// go generate: mockery --name DoctorDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartcareconnect/smartcare-api/models"
)

const doctorsName = "doctors"

// DoctorDatabase contains the methods to use with the doctor database
type DoctorDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Doctor, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Doctor, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
}

type doctorDatabase struct {
	db DatabaseHelper
}

// NewDoctorDatabase initializes a new instance of doctor database with the provided db connection
func NewDoctorDatabase(db DatabaseHelper) DoctorDatabase {
	return &doctorDatabase{
		db: db,
	}
}

func (d *doctorDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Doctor, error) {
	doctor := &models.Doctor{}
	err := d.db.Collection(doctorsName).FindOne(ctx, filter, opts...).Decode(&doctor)
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

func (d *doctorDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Doctor, error) {
	var doctors []models.Doctor
	curr, err := d.db.Collection(doctorsName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &doctors)
	if err != nil {
		return nil, err
	}
	return doctors, nil
}

func (d *doctorDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return d.db.Collection(doctorsName).InsertOne(ctx, document, opts...)
}
