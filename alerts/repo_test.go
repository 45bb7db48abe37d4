package alerts_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	alertsTest "github.com/lungcare/clinic/alerts/test"
	"github.com/lungcare/clinic/pointer"
	"github.com/lungcare/clinic/store"
	dbTest "github.com/lungcare/clinic/store/test"
)

var _ = Describe("Alerts Repository", func() {
	var repo alerts.Repository
	var collection *mongo.Collection
	var patientId primitive.ObjectID
	var now time.Time

	BeforeEach(func() {
		var err error
		database := dbTest.GetTestDatabase()
		collection = database.Collection("alerts")
		lifecycle := fxtest.NewLifecycle(GinkgoT())
		repo, err = alerts.NewRepository(database, zap.NewNop().Sugar(), lifecycle)
		Expect(err).ToNot(HaveOccurred())
		Expect(repo).ToNot(BeNil())
		lifecycle.RequireStart()

		patientId = primitive.NewObjectID()
		now = time.Now().Truncate(time.Millisecond)
	})

	AfterEach(func() {
		if collection == nil {
			return
		}
		_, err := collection.DeleteMany(context.Background(), bson.M{"patientId": patientId})
		Expect(err).ToNot(HaveOccurred())
	})

	candidate := func(title string, level alerts.Level, eventTime time.Time) alerts.Alert {
		return alerts.NewAlert(alertsTest.MetricSubmission(patientId, title, level, eventTime), time.Now())
	}

	Describe("Upsert", func() {
		It("creates an alert when none is open", func() {
			result, err := repo.Upsert(context.Background(), candidate("血氧异常", alerts.LevelModerate, now))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Outcome).To(Equal(alerts.OutcomeCreated))
			Expect(result.Previous).To(BeNil())

			stored, err := repo.Get(context.Background(), result.Alert.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Level).To(Equal(alerts.LevelModerate))
			Expect(stored.Status).To(Equal(alerts.StatusPending))
			Expect(stored.IsActive).To(BeTrue())
			Expect(stored.Open).To(BeTrue())
			Expect(stored.EventTime).To(BeTemporally("==", now))
			Expect(stored.SourcePayload).To(HaveKey("readingId"))
		})

		It("escalates the open alert in place", func() {
			first, err := repo.Upsert(context.Background(), candidate("血氧异常", alerts.LevelMild, now.Add(-time.Hour)))
			Expect(err).ToNot(HaveOccurred())

			second := candidate("血氧异常", alerts.LevelSevere, now)
			result, err := repo.Upsert(context.Background(), second)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Outcome).To(Equal(alerts.OutcomeEscalated))
			Expect(result.Previous.Level).To(Equal(alerts.LevelMild))
			Expect(result.Alert.Id).To(Equal(first.Alert.Id))

			stored, err := repo.Get(context.Background(), first.Alert.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Level).To(Equal(alerts.LevelSevere))
			Expect(stored.EventTime).To(BeTemporally("==", now))
			Expect(*stored.SourceId).To(Equal(*second.SourceId))

			count, err := collection.CountDocuments(context.Background(), bson.M{"patientId": patientId})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("never lowers the level or moves the event time backwards", func() {
			first, err := repo.Upsert(context.Background(), candidate("体温异常", alerts.LevelSevere, now))
			Expect(err).ToNot(HaveOccurred())

			result, err := repo.Upsert(context.Background(), candidate("体温异常", alerts.LevelMild, now.Add(-2*time.Hour)))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Outcome).To(Equal(alerts.OutcomeRefreshed))

			stored, err := repo.Get(context.Background(), first.Alert.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Level).To(Equal(alerts.LevelSevere))
			Expect(stored.EventTime).To(BeTemporally("==", now))
		})

		It("keeps a single open alert under concurrent submissions", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(level alerts.Level) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := repo.Upsert(context.Background(), candidate("血压异常", level, now))
					errs <- err
				}(alerts.Level(i%3 + 1))
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				Expect(err).ToNot(HaveOccurred())
			}

			var stored []alerts.Alert
			cursor, err := collection.Find(context.Background(), bson.M{"patientId": patientId})
			Expect(err).ToNot(HaveOccurred())
			Expect(cursor.All(context.Background(), &stored)).To(Succeed())
			Expect(stored).To(HaveLen(1))
			Expect(stored[0].Level).To(Equal(alerts.LevelSevere))
		})

		It("starts a new alert after the previous one is completed", func() {
			first, err := repo.Upsert(context.Background(), candidate("体重异常", alerts.LevelMild, now))
			Expect(err).ToNot(HaveOccurred())
			_, err = repo.UpdateStatus(context.Background(), first.Alert.Id, alerts.StatusUpdate{Status: alerts.StatusCompleted})
			Expect(err).ToNot(HaveOccurred())

			second, err := repo.Upsert(context.Background(), candidate("体重异常", alerts.LevelMild, now))
			Expect(err).ToNot(HaveOccurred())
			Expect(second.Outcome).To(Equal(alerts.OutcomeCreated))
			Expect(second.Alert.Id).ToNot(Equal(first.Alert.Id))
		})
	})

	Describe("UpdateStatus", func() {
		It("stores the workflow fields and keeps notes not resubmitted", func() {
			created, err := repo.Upsert(context.Background(), candidate("血氧异常", alerts.LevelMild, now))
			Expect(err).ToNot(HaveOccurred())

			updated, err := repo.UpdateStatus(context.Background(), created.Alert.Id, alerts.StatusUpdate{
				Status:        alerts.StatusEscalated,
				HandlerId:     pointer.FromAny("doctor-1"),
				HandleContent: pointer.FromAny("$notes"),
				HandleTime:    &now,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(alerts.StatusEscalated))
			Expect(updated.Open).To(BeTrue())
			Expect(*updated.HandlerId).To(Equal("doctor-1"))
			Expect(updated.HandleContent).To(Equal("$notes"))

			updated, err = repo.UpdateStatus(context.Background(), created.Alert.Id, alerts.StatusUpdate{Status: alerts.StatusCompleted})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Open).To(BeFalse())
			Expect(updated.HandleContent).To(Equal("$notes"))
		})

		It("returns not found for unknown alerts", func() {
			_, err := repo.UpdateStatus(context.Background(), primitive.NewObjectID(), alerts.StatusUpdate{Status: alerts.StatusCompleted})
			Expect(err).To(MatchError(alerts.ErrNotFound))
		})

		It("refuses to reopen an alert when another is open for the same cause", func() {
			first, err := repo.Upsert(context.Background(), candidate("血氧异常", alerts.LevelMild, now))
			Expect(err).ToNot(HaveOccurred())
			_, err = repo.UpdateStatus(context.Background(), first.Alert.Id, alerts.StatusUpdate{Status: alerts.StatusCompleted})
			Expect(err).ToNot(HaveOccurred())
			_, err = repo.Upsert(context.Background(), candidate("血氧异常", alerts.LevelMild, now))
			Expect(err).ToNot(HaveOccurred())

			_, err = repo.UpdateStatus(context.Background(), first.Alert.Id, alerts.StatusUpdate{Status: alerts.StatusPending})
			Expect(err).To(MatchError(alerts.ErrReopenConflict))
		})
	})

	Describe("Deactivate", func() {
		It("closes the alert and hides it from lists", func() {
			created, err := repo.Upsert(context.Background(), candidate("血氧异常", alerts.LevelMild, now))
			Expect(err).ToNot(HaveOccurred())

			deactivated, err := repo.Deactivate(context.Background(), created.Alert.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(deactivated.IsActive).To(BeFalse())
			Expect(deactivated.Open).To(BeFalse())

			count, err := repo.Count(context.Background(), &alerts.Filter{PatientId: &patientId})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(BeZero())

			second, err := repo.Upsert(context.Background(), candidate("血氧异常", alerts.LevelMild, now))
			Expect(err).ToNot(HaveOccurred())
			Expect(second.Outcome).To(Equal(alerts.OutcomeCreated))
		})
	})

	Describe("Create", func() {
		It("inserts without deduplication", func() {
			for i := 0; i < 2; i++ {
				_, err := repo.Create(context.Background(), candidate("手动提醒", alerts.LevelMild, now))
				Expect(err).ToNot(HaveOccurred())
			}

			count, err := repo.Count(context.Background(), &alerts.Filter{PatientId: &patientId})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Describe("List", func() {
		var doctorId primitive.ObjectID

		BeforeEach(func() {
			doctorId = primitive.NewObjectID()
			for i, title := range []string{"血氧异常", "体温异常", "体重异常", "血压异常"} {
				submission := alertsTest.MetricSubmission(patientId, title, alerts.Level(i%3+1), now.Add(-time.Duration(i)*time.Hour))
				submission.DoctorId = &doctorId
				submission.Payload["metricType"] = title
				_, err := repo.Upsert(context.Background(), alerts.NewAlert(submission, now))
				Expect(err).ToNot(HaveOccurred())
			}
		})

		It("pages results newest first", func() {
			result, err := repo.List(context.Background(), &alerts.Filter{DoctorIds: []primitive.ObjectID{doctorId}}, store.DefaultPagination().WithLimit(3), nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.TotalCount).To(Equal(4))
			Expect(result.Alerts).To(HaveLen(3))
			Expect(result.Alerts[0].Title).To(Equal("血氧异常"))
			Expect(result.Alerts[2].Title).To(Equal("体重异常"))

			result, err = repo.List(context.Background(), &alerts.Filter{DoctorIds: []primitive.ObjectID{doctorId}}, store.DefaultPagination().WithOffset(3), nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Alerts).To(HaveLen(1))
			Expect(result.Alerts[0].Title).To(Equal("血压异常"))
		})

		It("sorts by the requested attributes", func() {
			sorts := []*store.Sort{{Attribute: "level", Ascending: false}, {Attribute: "eventTime", Ascending: true}}
			result, err := repo.List(context.Background(), &alerts.Filter{PatientId: &patientId}, store.DefaultPagination(), sorts)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Alerts).To(HaveLen(4))
			Expect(result.Alerts[0].Level).To(Equal(alerts.LevelSevere))
			Expect(result.Alerts[1].Title).To(Equal("体温异常"))
			Expect(result.Alerts[2].Title).To(Equal("血压异常"))
		})

		It("filters by level, time range and payload", func() {
			from := now.Add(-90 * time.Minute)
			result, err := repo.List(context.Background(), &alerts.Filter{
				PatientId:     &patientId,
				EventTimeFrom: &from,
				EventTimeTo:   &now,
			}, store.DefaultPagination(), nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.TotalCount).To(Equal(1))
			Expect(result.Alerts[0].Title).To(Equal("体温异常"))

			count, err := repo.Count(context.Background(), &alerts.Filter{
				PatientId: &patientId,
				Levels:    []alerts.Level{alerts.LevelMild},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(2))

			count, err = repo.Count(context.Background(), &alerts.Filter{
				PatientId:         &patientId,
				PayloadMetricType: pointer.FromAny("体重异常"),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("returns an empty page for unknown doctors", func() {
			result, err := repo.List(context.Background(), &alerts.Filter{DoctorIds: []primitive.ObjectID{primitive.NewObjectID()}}, store.DefaultPagination(), nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.TotalCount).To(BeZero())
			Expect(result.Alerts).To(BeEmpty())
		})
	})
})
