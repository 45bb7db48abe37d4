package metric_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/alerts/metric"
	alertsTest "github.com/lungcare/clinic/alerts/test"
	outboxTest "github.com/lungcare/clinic/outbox/test"
	"github.com/lungcare/clinic/patients"
	patientsTest "github.com/lungcare/clinic/patients/test"
	"github.com/lungcare/clinic/pointer"
	"github.com/lungcare/clinic/readings"
	readingsTest "github.com/lungcare/clinic/readings/test"
	"github.com/lungcare/clinic/test"
)

var _ = Describe("Metric Evaluator", func() {
	var ctrl *gomock.Controller
	var readingsRepo *readingsTest.MockRepository
	var patientsRepo *patientsTest.MockRepository
	var alertsRepo *alertsTest.MemoryRepository
	var evaluator metric.Evaluator
	var patient patients.Patient
	var now time.Time

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		readingsRepo = readingsTest.NewMockRepository(ctrl)
		patientsRepo = patientsTest.NewMockRepository(ctrl)
		outboxRepo := outboxTest.NewMockRepository(ctrl)
		outboxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		alertsRepo = alertsTest.NewMemoryRepository()

		logger := zap.NewNop().Sugar()
		service, err := alerts.NewService(alerts.Params{
			Repository: alertsRepo,
			Patients:   patientsRepo,
			Outbox:     outboxRepo,
			Archive:    &alertsTest.MemoryArchive{},
			Logger:     logger,
		})
		Expect(err).ToNot(HaveOccurred())

		evaluator, err = metric.NewEvaluator(metric.Params{
			Readings: readingsRepo,
			Patients: patientsRepo,
			Alerts:   service,
			Logger:   logger,
		})
		Expect(err).ToNot(HaveOccurred())

		patient = patientsTest.RandomPatient()
		patientsRepo.EXPECT().Get(gomock.Any(), patient.Id).DoAndReturn(func(context.Context, primitive.ObjectID) (*patients.Patient, error) {
			return &patient, nil
		}).AnyTimes()
		now = time.Now().Truncate(time.Second)
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	reading := func(metricType readings.MetricType, measured time.Time, values ...float64) *readings.Reading {
		r := readingsTest.NewReading(patient.Id, metricType, measured, values...)
		return &r
	}

	Describe("Evaluate", func() {
		It("ignores unsupported metric types", func() {
			submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeHeartRate, now, 150))
			Expect(err).ToNot(HaveOccurred())
			Expect(submission).To(BeNil())

			submission, err = evaluator.Evaluate(context.Background(), reading(readings.MetricTypeSteps, now, 20))
			Expect(err).ToNot(HaveOccurred())
			Expect(submission).To(BeNil())
		})

		It("fails when the patient does not exist", func() {
			r := readingsTest.NewReading(primitive.NewObjectID(), readings.MetricTypeSpO2, now, 88)
			patientsRepo.EXPECT().Get(gomock.Any(), r.PatientId).Return(nil, patients.ErrNotFound)

			_, err := evaluator.Evaluate(context.Background(), &r)
			Expect(err).To(MatchError(patients.ErrNotFound))
		})

		It("skips readings without a value", func() {
			for _, metricType := range []readings.MetricType{readings.MetricTypeSpO2, readings.MetricTypeTemperature, readings.MetricTypeWeight, readings.MetricTypeBloodPressure} {
				submission, err := evaluator.Evaluate(context.Background(), reading(metricType, now))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).To(BeNil())
			}
		})

		Describe("SpO2", func() {
			It("does not alert for normal values", func() {
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeSpO2, now, 95))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).To(BeNil())
			})

			It("classifies the absolute value without a baseline", func() {
				r := reading(readings.MetricTypeSpO2, now, 89)
				submission, err := evaluator.Evaluate(context.Background(), r)
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).ToNot(BeNil())
				Expect(submission.Level).To(Equal(alerts.LevelSevere))
				Expect(submission.EventType).To(Equal(alerts.EventTypeData))
				Expect(submission.Title).To(Equal(metric.TitleSpO2))
				Expect(submission.Content).To(Equal("血氧 89%"))
				Expect(submission.EventTime).To(Equal(now))
				Expect(submission.SourceType).To(Equal(metric.SourceType))
				Expect(*submission.SourceId).To(Equal(r.Id))
				Expect(submission.Dedup).To(ConsistOf(alerts.DedupSourceType, alerts.DedupTitle))
				Expect(submission.Payload).To(HaveKeyWithValue("readingId", r.Id.Hex()))
				Expect(submission.Payload).To(HaveKeyWithValue("metricType", "M_SPO2"))
				Expect(submission.Payload).To(HaveKeyWithValue("valueMain", pointer.FromString("89")))
				Expect(submission.Payload).To(HaveKeyWithValue("measuredTime", now.Format(time.RFC3339)))
			})

			Context("with a baseline", func() {
				BeforeEach(func() {
					patient.Baselines.SpO2 = pointer.FromAny(99.0)
				})

				It("raises an unconfirmed drop as mild", func() {
					readingsRepo.EXPECT().List(gomock.Any(), test.Match(func(f *readings.Filter) bool {
						return f.MetricType == readings.MetricTypeSpO2 && f.ExcludeId != nil &&
							f.From.Equal(now.Add(-24*time.Hour)) && f.To.Equal(now)
					})).Return([]*readings.Reading{reading(readings.MetricTypeSpO2, now.Add(-time.Hour), 98)}, nil)

					submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeSpO2, now, 94))
					Expect(err).ToNot(HaveOccurred())
					Expect(submission.Level).To(Equal(alerts.LevelMild))
					Expect(submission.Content).To(Equal("血氧 94%（基线 99%）"))
				})

				It("raises a drop confirmed by an earlier reading as moderate", func() {
					readingsRepo.EXPECT().List(gomock.Any(), gomock.Any()).
						Return([]*readings.Reading{reading(readings.MetricTypeSpO2, now.Add(-3*time.Hour), 93)}, nil)

					submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeSpO2, now, 94))
					Expect(err).ToNot(HaveOccurred())
					Expect(submission.Level).To(Equal(alerts.LevelModerate))
				})

				It("does not look for a confirmation of smaller drops", func() {
					submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeSpO2, now, 96))
					Expect(err).ToNot(HaveOccurred())
					Expect(submission.Level).To(Equal(alerts.LevelMild))
				})
			})
		})

		Describe("Temperature", func() {
			history := func(previous ...*readings.Reading) {
				readingsRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(previous, nil)
			}

			It("does not alert for normal values", func() {
				history()
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 36.8))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).To(BeNil())
			})

			It("classifies the value alone without history", func() {
				history()
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 38.2))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelMild))
				Expect(submission.Title).To(Equal(metric.TitleTemperature))
				Expect(submission.Content).To(Equal("体温 38.2℃"))
			})

			It("raises a fever persisting for 48 hours to moderate", func() {
				history(
					reading(readings.MetricTypeTemperature, now.Add(-48*time.Hour), 38.5),
					reading(readings.MetricTypeTemperature, now.Add(-24*time.Hour), 38.1),
				)
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 38.2))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelModerate))
				Expect(submission.Content).To(Equal("体温 38.2℃，连续48小时≥38℃"))
			})

			It("raises a fever persisting for 72 hours to severe", func() {
				history(
					reading(readings.MetricTypeTemperature, now.Add(-72*time.Hour), 38.3),
					reading(readings.MetricTypeTemperature, now.Add(-50*time.Hour), 38.4),
					reading(readings.MetricTypeTemperature, now.Add(-20*time.Hour), 38),
				)
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 38.2))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelSevere))
				Expect(submission.Content).To(Equal("体温 38.2℃，连续72小时≥38℃"))
			})

			It("does not count a window broken by a normal reading", func() {
				history(
					reading(readings.MetricTypeTemperature, now.Add(-72*time.Hour), 38.3),
					reading(readings.MetricTypeTemperature, now.Add(-10*time.Hour), 37.5),
				)
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 38.2))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelMild))
			})

			It("does not count fever readings taken before the window", func() {
				history(
					reading(readings.MetricTypeTemperature, now.Add(-50*time.Hour), 38.5),
					reading(readings.MetricTypeTemperature, now.Add(-24*time.Hour), 38.5),
				)
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 38.2))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelMild))
				Expect(submission.Content).To(Equal("体温 38.2℃"))
			})

			It("queries only the longest window", func() {
				readingsRepo.EXPECT().
					List(gomock.Any(), test.Match(func(f *readings.Filter) bool {
						return f.From != nil && f.From.Equal(now.Add(-72*time.Hour)) && f.To != nil && f.To.Equal(now)
					})).
					Return(nil, nil)
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 38.2))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelMild))
			})

			It("does not count a window that is not covered by readings", func() {
				history(
					reading(readings.MetricTypeTemperature, now.Add(-40*time.Hour), 38.9),
					reading(readings.MetricTypeTemperature, now.Add(-10*time.Hour), 38.9),
				)
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeTemperature, now, 38.2))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelMild))
			})
		})

		Describe("Weight", func() {
			It("raises a drift from the configured baseline", func() {
				patient.Baselines.Weight = pointer.FromAny(70.0)
				readingsRepo.EXPECT().Span(gomock.Any(), gomock.Any()).Return(&readings.Span{}, nil)

				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeWeight, now, 74))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelMild))
				Expect(submission.Title).To(Equal(metric.TitleWeight))
				Expect(submission.Content).To(Equal("体重 74kg（180天变化>5%）"))
			})

			It("compares with the earliest weight of the last 180 days without a baseline", func() {
				readingsRepo.EXPECT().Span(gomock.Any(), test.Match(func(f *readings.Filter) bool {
					return f.From.Equal(now.Add(-72 * time.Hour))
				})).Return(&readings.Span{Min: pointer.FromAny(71.5), Max: pointer.FromAny(71.5), Count: 1}, nil)
				readingsRepo.EXPECT().Earliest(gomock.Any(), test.Match(func(f *readings.Filter) bool {
					return f.From.Equal(now.Add(-180 * 24 * time.Hour))
				})).Return(reading(readings.MetricTypeWeight, now.Add(-100*24*time.Hour), 70), nil)

				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeWeight, now, 73.6))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Content).To(Equal("体重 73.6kg（3天变化>2kg、180天变化>5%）"))
			})

			It("requires the changes to exceed the limits", func() {
				patient.Baselines.Weight = pointer.FromAny(70.0)
				readingsRepo.EXPECT().Span(gomock.Any(), gomock.Any()).
					Return(&readings.Span{Min: pointer.FromAny(71.5), Max: pointer.FromAny(71.5), Count: 1}, nil)

				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeWeight, now, 73.5))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).To(BeNil())
			})

			It("does not alert without any reference weight", func() {
				readingsRepo.EXPECT().Span(gomock.Any(), gomock.Any()).Return(&readings.Span{}, nil)
				readingsRepo.EXPECT().Earliest(gomock.Any(), gomock.Any()).Return(nil, readings.ErrNotFound)

				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeWeight, now, 80))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).To(BeNil())
			})
		})

		Describe("Blood pressure", func() {
			It("uses the default ranges without baselines", func() {
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeBloodPressure, now, 154, 90))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelMild))
				Expect(submission.Title).To(Equal(metric.TitleBloodPressure))
				Expect(submission.Content).To(Equal("血压 154/90"))
				Expect(submission.Payload).To(HaveKeyWithValue("valueSub", pointer.FromString("90")))
			})

			It("does not alert inside the default ranges", func() {
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeBloodPressure, now, 130, 85))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).To(BeNil())
			})

			It("uses the baselines as a zero width range", func() {
				patient.Baselines.Systolic = pointer.FromAny(130.0)
				patient.Baselines.Diastolic = pointer.FromAny(85.0)

				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeBloodPressure, now, 160, 95))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission.Level).To(Equal(alerts.LevelSevere))
				Expect(submission.Content).To(Equal("血压 160/95（基线 130/85）"))
			})

			It("requires both values", func() {
				submission, err := evaluator.Evaluate(context.Background(), reading(readings.MetricTypeBloodPressure, now, 180))
				Expect(err).ToNot(HaveOccurred())
				Expect(submission).To(BeNil())
			})
		})
	})

	Describe("Process", func() {
		It("creates exactly one severe data alert for a low spo2 reading", func() {
			r := reading(readings.MetricTypeSpO2, now, 89)
			alert, err := evaluator.Process(context.Background(), r)
			Expect(err).ToNot(HaveOccurred())
			Expect(alert).ToNot(BeNil())

			all := alertsRepo.All()
			Expect(all).To(HaveLen(1))
			Expect(all[0].Level).To(Equal(alerts.LevelSevere))
			Expect(all[0].EventType).To(Equal(alerts.EventTypeData))
			Expect(all[0].SourceType).To(Equal("metric"))
			Expect(all[0].DoctorId).To(Equal(patient.DoctorId))
		})

		It("escalates the open alert for later readings", func() {
			_, err := evaluator.Process(context.Background(), reading(readings.MetricTypeBloodPressure, now.Add(-time.Hour), 154, 90))
			Expect(err).ToNot(HaveOccurred())
			second := reading(readings.MetricTypeBloodPressure, now, 175, 120)
			alert, err := evaluator.Process(context.Background(), second)
			Expect(err).ToNot(HaveOccurred())

			Expect(alertsRepo.All()).To(HaveLen(1))
			Expect(alert.Level).To(Equal(alerts.LevelSevere))
			Expect(*alert.SourceId).To(Equal(second.Id))
			Expect(alert.Content).To(Equal("血压 175/120"))
		})

		It("does nothing for normal readings", func() {
			alert, err := evaluator.Process(context.Background(), reading(readings.MetricTypeBloodPressure, now, 125, 82))
			Expect(err).ToNot(HaveOccurred())
			Expect(alert).To(BeNil())
			Expect(alertsRepo.All()).To(BeEmpty())
		})

		It("loads the reading by id", func() {
			r := reading(readings.MetricTypeSpO2, now, 91)
			readingsRepo.EXPECT().Get(gomock.Any(), r.Id).Return(r, nil)

			alert, err := evaluator.ProcessById(context.Background(), r.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(alert.Level).To(Equal(alerts.LevelModerate))
		})

		It("returns not found for unknown readings", func() {
			id := primitive.NewObjectID()
			readingsRepo.EXPECT().Get(gomock.Any(), id).Return(nil, readings.ErrNotFound)

			_, err := evaluator.ProcessById(context.Background(), id)
			Expect(err).To(MatchError(readings.ErrNotFound))
		})
	})
})
