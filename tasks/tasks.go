package tasks

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the format of a task's scheduled calendar day.
const DateLayout = "2006-01-02"

type Category int

const (
	CategoryMedication    Category = 1
	CategoryCheckup       Category = 2
	CategoryQuestionnaire Category = 3
	CategoryMonitoring    Category = 4
)

type Status int

const (
	StatusPending   Status = 0
	StatusCompleted Status = 1
	StatusIgnored   Status = 2
)

// Task is a scheduled clinical action generated daily from a patient's plan. TemplateId links
// monitoring tasks to the monitoring template they were generated from.
type Task struct {
	Id         primitive.ObjectID  `bson:"_id,omitempty"`
	PatientId  primitive.ObjectID  `bson:"patientId"`
	Category   Category            `bson:"category"`
	Date       string              `bson:"taskDate"`
	Title      string              `bson:"title"`
	Status     Status              `bson:"status"`
	TemplateId *primitive.ObjectID `bson:"templateId,omitempty"`
}

// MonitoringTemplate describes a kind of measurement patients can be asked to take. Templates
// for vital signs use the metric type as their code.
type MonitoringTemplate struct {
	Id       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Code     string             `bson:"code"`
	IsActive bool               `bson:"isActive"`
}

// PendingFilter selects tasks of a category scheduled within [From, To]. A non-nil TemplateId
// narrows monitoring tasks to a single template.
type PendingFilter struct {
	PatientId  primitive.ObjectID
	Category   Category
	TemplateId *primitive.ObjectID
	From       string
	To         string
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar day as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, loc)
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from one day to another, negative if to is earlier.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
