package test

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/tasks"
	"github.com/lungcare/clinic/test"
)

func NewTask(patientId primitive.ObjectID, category tasks.Category, date string, status tasks.Status) tasks.Task {
	return tasks.Task{
		Id:        primitive.NewObjectID(),
		PatientId: patientId,
		Category:  category,
		Date:      date,
		Title:     test.Faker.Lorem().Sentence(3),
		Status:    status,
	}
}
