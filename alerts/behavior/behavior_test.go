package behavior_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/alerts/behavior"
	alertsTest "github.com/lungcare/clinic/alerts/test"
	"github.com/lungcare/clinic/config"
	outboxTest "github.com/lungcare/clinic/outbox/test"
	"github.com/lungcare/clinic/patients"
	patientsTest "github.com/lungcare/clinic/patients/test"
	"github.com/lungcare/clinic/tasks"
	tasksTest "github.com/lungcare/clinic/tasks/test"
	"github.com/lungcare/clinic/test"
)

var _ = DescribeTable("LevelForMissedDays",
	func(days int, expected alerts.Level, ok bool) {
		level, found := behavior.LevelForMissedDays(days)
		Expect(found).To(Equal(ok))
		Expect(level).To(Equal(expected))
	},
	Entry("none", 0, alerts.Level(0), false),
	Entry("one day", 1, alerts.LevelMild, true),
	Entry("two days", 2, alerts.LevelMild, true),
	Entry("three days", 3, alerts.LevelModerate, true),
	Entry("six days", 6, alerts.LevelModerate, true),
	Entry("a week", 7, alerts.LevelSevere, true),
)

var _ = DescribeTable("LevelForOverdueDays",
	func(days int, expected alerts.Level, offset int, ok bool) {
		level, off, found := behavior.LevelForOverdueDays(days)
		Expect(found).To(Equal(ok))
		Expect(level).To(Equal(expected))
		Expect(off).To(Equal(offset))
	},
	Entry("one day", 1, alerts.Level(0), 0, false),
	Entry("two days", 2, alerts.LevelMild, 2, true),
	Entry("three days", 3, alerts.LevelMild, 2, true),
	Entry("four days", 4, alerts.LevelModerate, 4, true),
	Entry("seven days", 7, alerts.LevelSevere, 7, true),
	Entry("thirty days", 30, alerts.LevelSevere, 7, true),
)

var _ = Describe("Scanner", func() {
	var ctrl *gomock.Controller
	var tasksRepo *tasksTest.MockRepository
	var patientsRepo *patientsTest.MockRepository
	var alertsRepo *alertsTest.MemoryRepository
	var scanner behavior.Scanner
	var location *time.Location
	var now time.Time

	var patient patients.Patient
	var template tasks.MonitoringTemplate
	var medication map[primitive.ObjectID]map[string]int
	var monitoring map[primitive.ObjectID]map[string]int
	var overdue map[primitive.ObjectID][]*tasks.Task
	var failing map[primitive.ObjectID]bool
	var filters []tasks.PendingFilter

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		tasksRepo = tasksTest.NewMockRepository(ctrl)
		patientsRepo = patientsTest.NewMockRepository(ctrl)
		outboxRepo := outboxTest.NewMockRepository(ctrl)
		outboxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		alertsRepo = alertsTest.NewMemoryRepository()

		cfg := config.New()
		cfg.Timezone = "Asia/Shanghai"
		cfg.ScanWorkers = 1
		location = cfg.Location()
		now = time.Date(2024, 3, 10, 10, 30, 0, 0, location)

		logger := zap.NewNop().Sugar()
		service, err := alerts.NewService(alerts.Params{
			Repository: alertsRepo,
			Patients:   patientsRepo,
			Outbox:     outboxRepo,
			Archive:    &alertsTest.MemoryArchive{},
			Logger:     logger,
		})
		Expect(err).ToNot(HaveOccurred())

		scanner, err = behavior.NewScanner(behavior.Params{
			Config:   cfg,
			Patients: patientsRepo,
			Tasks:    tasksRepo,
			Alerts:   service,
			Logger:   logger,
		})
		Expect(err).ToNot(HaveOccurred())

		patient = patientsTest.RandomPatient()
		template = tasks.MonitoringTemplate{Id: primitive.NewObjectID(), Name: "血氧", Code: "M_SPO2", IsActive: true}
		medication = map[primitive.ObjectID]map[string]int{}
		monitoring = map[primitive.ObjectID]map[string]int{}
		overdue = map[primitive.ObjectID][]*tasks.Task{}
		failing = map[primitive.ObjectID]bool{}
		filters = nil

		tasksRepo.EXPECT().ListMonitoringTemplates(gomock.Any(), test.Match(func(codes []string) bool {
			return len(codes) == 6 && codes[0] == "M_BP"
		})).Return([]*tasks.MonitoringTemplate{&template}, nil).AnyTimes()
		tasksRepo.EXPECT().PendingCountsByDate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, filter *tasks.PendingFilter) (map[string]int, error) {
			filters = append(filters, *filter)
			if failing[filter.PatientId] {
				return nil, fmt.Errorf("connection reset")
			}
			if filter.Category == tasks.CategoryMonitoring {
				return monitoring[filter.PatientId], nil
			}
			return medication[filter.PatientId], nil
		}).AnyTimes()
		tasksRepo.EXPECT().ListOverdue(gomock.Any(), gomock.Any(), []tasks.Category{tasks.CategoryQuestionnaire, tasks.CategoryCheckup}, "2024-03-08").
			DoAndReturn(func(_ context.Context, patientId primitive.ObjectID, _ []tasks.Category, _ string) ([]*tasks.Task, error) {
				return overdue[patientId], nil
			}).AnyTimes()
		patientsRepo.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, id primitive.ObjectID) (*patients.Patient, error) {
			p := patientsTest.RandomPatient()
			p.Id = id
			return &p, nil
		}).AnyTimes()
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	listPatients := func(list ...*patients.Patient) {
		patientsRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(list, nil)
	}

	Describe("Scan", func() {
		It("defaults the scan date to yesterday", func() {
			listPatients(&patient)

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.AsOfDate).To(Equal("2024-03-09"))
			Expect(result.RunId).ToNot(BeEmpty())
			Expect(result.Patients).To(Equal(1))
			Expect(result.Submissions).To(BeEmpty())

			Expect(filters).To(HaveLen(2))
			Expect(filters[0].Category).To(Equal(tasks.CategoryMedication))
			Expect(filters[0].From).To(Equal("2024-03-03"))
			Expect(filters[0].To).To(Equal("2024-03-09"))
			Expect(filters[1].Category).To(Equal(tasks.CategoryMonitoring))
			Expect(*filters[1].TemplateId).To(Equal(template.Id))
		})

		It("restricts the scan to the requested active patients", func() {
			patientsRepo.EXPECT().List(gomock.Any(), test.Match(func(filter *patients.Filter) bool {
				return filter.ActiveOnly && len(filter.Ids) == 1 && filter.Ids[0] == patient.Id
			})).Return([]*patients.Patient{&patient}, nil)

			_, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now, PatientIds: []primitive.ObjectID{patient.Id}})
			Expect(err).ToNot(HaveOccurred())
		})

		It("counts a medication streak until the first day without pending tasks", func() {
			listPatients(&patient)
			medication[patient.Id] = map[string]int{
				"2024-03-09": 1,
				"2024-03-08": 2,
				"2024-03-07": 1,
				"2024-03-05": 3,
			}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Submissions).To(HaveLen(1))

			submission := result.Submissions[0]
			Expect(submission.PatientId).To(Equal(patient.Id))
			Expect(submission.EventType).To(Equal(alerts.EventTypeBehavior))
			Expect(submission.Level).To(Equal(alerts.LevelModerate))
			Expect(submission.Title).To(Equal("用药未完成"))
			Expect(submission.Content).To(Equal("连续3天未完成用药任务"))
			Expect(submission.SourceType).To(Equal("behavior_medication"))
			Expect(submission.SourceId).To(BeNil())
			Expect(submission.EventTime).To(BeTemporally("==", time.Date(2024, 3, 9, 0, 0, 0, 0, location)))
			Expect(submission.Payload).To(HaveKeyWithValue("missedDays", 3))
			Expect(submission.Payload).To(HaveKeyWithValue("asOfDate", "2024-03-09"))
			Expect(submission.Payload).To(HaveKeyWithValue("runId", result.RunId))
			Expect(submission.Payload).ToNot(HaveKey("metricCode"))
		})

		It("stops at days with a zero count", func() {
			listPatients(&patient)
			medication[patient.Id] = map[string]int{
				"2024-03-09": 1,
				"2024-03-08": 0,
				"2024-03-07": 1,
			}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Submissions).To(HaveLen(1))
			Expect(result.Submissions[0].Level).To(Equal(alerts.LevelMild))
			Expect(result.Submissions[0].Content).To(Equal("连续1天未完成用药任务"))
		})

		It("does not alert when the scan date has no pending task", func() {
			listPatients(&patient)
			medication[patient.Id] = map[string]int{
				"2024-03-08": 1,
				"2024-03-07": 1,
			}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Submissions).To(BeEmpty())
		})

		It("raises a monitoring streak of a week to severe", func() {
			listPatients(&patient)
			asOf := time.Date(2024, 3, 5, 15, 0, 0, 0, location)
			monitoring[patient.Id] = map[string]int{}
			for i := 0; i < 7; i++ {
				monitoring[patient.Id][tasks.FormatDate(asOf.AddDate(0, 0, -i))] = 1
			}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now, AsOfDate: &asOf})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.AsOfDate).To(Equal("2024-03-05"))
			Expect(result.Submissions).To(HaveLen(1))

			submission := result.Submissions[0]
			Expect(submission.Level).To(Equal(alerts.LevelSevere))
			Expect(submission.Title).To(Equal("监测未完成-血氧"))
			Expect(submission.Content).To(Equal("连续7天未完成血氧监测"))
			Expect(submission.SourceType).To(Equal(behavior.MonitoringSourceType("M_SPO2")))
			Expect(submission.Payload).To(HaveKeyWithValue("metricCode", "M_SPO2"))
			Expect(submission.EventTime).To(BeTemporally("==", time.Date(2024, 3, 5, 0, 0, 0, 0, location)))
		})

		It("uses a generic name for unnamed templates", func() {
			listPatients(&patient)
			template.Name = ""
			monitoring[patient.Id] = map[string]int{"2024-03-09": 1}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Submissions).To(HaveLen(1))
			Expect(result.Submissions[0].Title).To(Equal("监测未完成-监测"))
		})

		It("raises one alert per overdue task", func() {
			listPatients(&patient)
			questionnaire := tasksTest.NewTask(patient.Id, tasks.CategoryQuestionnaire, "2024-03-05", tasks.StatusPending)
			questionnaire.Title = "CAT评估"
			checkup := tasksTest.NewTask(patient.Id, tasks.CategoryCheckup, "2024-03-08", tasks.StatusPending)
			checkup.Title = ""
			overdue[patient.Id] = []*tasks.Task{&questionnaire, &checkup}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Submissions).To(HaveLen(2))

			first := result.Submissions[0]
			Expect(first.Level).To(Equal(alerts.LevelModerate))
			Expect(first.Title).To(Equal("随访过期"))
			Expect(first.Content).To(Equal("CAT评估已逾期5天"))
			Expect(first.SourceType).To(Equal("behavior_questionnaire"))
			Expect(*first.SourceId).To(Equal(questionnaire.Id))
			Expect(first.EventTime).To(BeTemporally("==", time.Date(2024, 3, 9, 0, 0, 0, 0, location)))
			Expect(first.Payload).To(HaveKeyWithValue("taskId", questionnaire.Id.Hex()))
			Expect(first.Payload).To(HaveKeyWithValue("taskDate", "2024-03-05"))
			Expect(first.Payload).To(HaveKeyWithValue("daysOverdue", 5))

			second := result.Submissions[1]
			Expect(second.Level).To(Equal(alerts.LevelMild))
			Expect(second.Title).To(Equal("复查过期"))
			Expect(second.Content).To(Equal("计划任务已逾期2天"))
			Expect(second.SourceType).To(Equal("behavior_checkup"))
			Expect(second.EventTime).To(BeTemporally("==", time.Date(2024, 3, 10, 0, 0, 0, 0, location)))
		})

		It("skips overdue tasks with an invalid date", func() {
			listPatients(&patient)
			task := tasksTest.NewTask(patient.Id, tasks.CategoryCheckup, "soon", tasks.StatusPending)
			overdue[patient.Id] = []*tasks.Task{&task}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Submissions).To(BeEmpty())
		})

		It("does not store anything", func() {
			listPatients(&patient)
			medication[patient.Id] = map[string]int{"2024-03-09": 1}

			result, err := scanner.Scan(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Submissions).To(HaveLen(1))
			Expect(result.Alerts).To(BeEmpty())
			Expect(alertsRepo.All()).To(BeEmpty())
		})
	})

	Describe("Run", func() {
		It("stores the alerts", func() {
			listPatients(&patient)
			medication[patient.Id] = map[string]int{"2024-03-09": 1, "2024-03-08": 1, "2024-03-07": 1}

			result, err := scanner.Run(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Alerts).To(HaveLen(1))
			Expect(result.Alerts[0].Level).To(Equal(alerts.LevelModerate))
			Expect(*result.Alerts[0].DoctorId).To(Equal(*patient.DoctorId))

			all := alertsRepo.All()
			Expect(all).To(HaveLen(1))
			Expect(all[0].Status).To(Equal(alerts.StatusPending))
		})

		It("is idempotent for the same scan date", func() {
			patientsRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*patients.Patient{&patient}, nil).Times(2)
			medication[patient.Id] = map[string]int{"2024-03-09": 1}
			task := tasksTest.NewTask(patient.Id, tasks.CategoryQuestionnaire, "2024-03-01", tasks.StatusPending)
			overdue[patient.Id] = []*tasks.Task{&task}

			for i := 0; i < 2; i++ {
				_, err := scanner.Run(context.Background(), behavior.RunOptions{Now: now})
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(alertsRepo.All()).To(HaveLen(2))
		})

		It("escalates the streak alert as the streak grows", func() {
			patientsRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*patients.Patient{&patient}, nil).Times(2)
			medication[patient.Id] = map[string]int{"2024-03-08": 1}
			first := time.Date(2024, 3, 8, 0, 0, 0, 0, location)
			_, err := scanner.Run(context.Background(), behavior.RunOptions{Now: now, AsOfDate: &first})
			Expect(err).ToNot(HaveOccurred())

			medication[patient.Id] = map[string]int{"2024-03-09": 1, "2024-03-08": 1, "2024-03-07": 1}
			second := time.Date(2024, 3, 9, 0, 0, 0, 0, location)
			_, err = scanner.Run(context.Background(), behavior.RunOptions{Now: now, AsOfDate: &second})
			Expect(err).ToNot(HaveOccurred())

			all := alertsRepo.All()
			Expect(all).To(HaveLen(1))
			Expect(all[0].Level).To(Equal(alerts.LevelModerate))
			Expect(all[0].EventTime).To(BeTemporally("==", second))
			Expect(all[0].Content).To(Equal("连续3天未完成用药任务"))
		})

		It("isolates failing patients", func() {
			broken := patientsTest.RandomPatient()
			listPatients(&broken, &patient)
			failing[broken.Id] = true
			medication[patient.Id] = map[string]int{"2024-03-09": 1}

			result, err := scanner.Run(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(broken.Id.Hex()))
			Expect(result.Failed).To(ConsistOf(broken.Id))
			Expect(result.Alerts).To(HaveLen(1))
			Expect(result.Alerts[0].PatientId).To(Equal(patient.Id))
		})

		It("fails when the patients cannot be listed", func() {
			patientsRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("timeout"))

			_, err := scanner.Run(context.Background(), behavior.RunOptions{Now: now})
			Expect(err).To(HaveOccurred())
		})
	})
})
