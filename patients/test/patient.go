package test

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/patients"
	"github.com/lungcare/clinic/test"
)

func RandomPatient() patients.Patient {
	doctorId := primitive.NewObjectID()
	return patients.Patient{
		Id:       primitive.NewObjectID(),
		Name:     test.Faker.Person().Name(),
		DoctorId: &doctorId,
		IsActive: true,
	}
}

func RandomPatientWithBaselines() patients.Patient {
	patient := RandomPatient()
	spo2 := test.RandomFloat(95, 99)
	systolic := test.RandomFloat(120, 135)
	diastolic := test.RandomFloat(75, 85)
	weight := test.RandomFloat(50, 90)
	patient.Baselines = patients.Baselines{
		SpO2:      &spo2,
		Systolic:  &systolic,
		Diastolic: &diastolic,
		Weight:    &weight,
	}
	return patient
}
