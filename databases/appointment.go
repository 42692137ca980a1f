package databases

// go generate: mockery --name AppointmentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartcareconnect/smartcare-api/models"
)

// AppointmentsCollection keeps the historical misspelling, existing data lives there
const AppointmentsCollection = "appoinments"

// AppointmentDatabase contains the methods to use with the appointment database
type AppointmentDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Appointment, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Appointment, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
}

type appointmentDatabase struct {
	db DatabaseHelper
}

// NewAppointmentDatabase initializes a new instance of appointment database with the provided db connection
func NewAppointmentDatabase(db DatabaseHelper) AppointmentDatabase {
	return &appointmentDatabase{
		db: db,
	}
}

func (a *appointmentDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Appointment, error) {
	appointment := &models.Appointment{}
	err := a.db.Collection(AppointmentsCollection).FindOne(ctx, filter, opts...).Decode(&appointment)
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (a *appointmentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Appointment, error) {
	var appointments []models.Appointment
	curr, err := a.db.Collection(AppointmentsCollection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &appointments)
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (a *appointmentDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return a.db.Collection(AppointmentsCollection).InsertOne(ctx, document, opts...)
}

func (a *appointmentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := a.db.Collection(AppointmentsCollection).UpdateOne(ctx, filter, update, opts...)
	return err
}
