package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts/behavior"
	"github.com/lungcare/clinic/config"
	"github.com/lungcare/clinic/tasks"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scheduled alert scans",
	Long:  "The scan command runs the scheduled alert evaluations",
}

var scanBehaviorParams = struct {
	Date       string
	PatientIds []string
	DryRun     bool
}{}

var scanBehaviorCmd = &cobra.Command{
	Use:   "behavior",
	Short: "Scan patients for missed and overdue tasks",
	Long:  "The behavior command raises alerts for missed medication and monitoring tasks and overdue follow-ups",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(scanBehavior) },
}

func init() {
	scanBehaviorCmd.Flags().StringVar(&scanBehaviorParams.Date, "date", "", "Scan date (YYYY-MM-DD), defaults to yesterday")
	scanBehaviorCmd.Flags().StringArrayVar(&scanBehaviorParams.PatientIds, "patient", nil, "Restrict the scan to a patient id, can be repeated")
	scanBehaviorCmd.Flags().BoolVar(&scanBehaviorParams.DryRun, "dry-run", false, "Only prints out the alerts the scan would raise")

	scanCmd.AddCommand(scanBehaviorCmd)
	rootCmd.AddCommand(scanCmd)
}

func scanBehavior(scanner behavior.Scanner, cfg *config.Config, logger *zap.SugaredLogger) error {
	opts := behavior.RunOptions{}
	if scanBehaviorParams.Date != "" {
		asOf, err := tasks.ParseDate(scanBehaviorParams.Date, cfg.Location())
		if err != nil {
			return fmt.Errorf("invalid scan date %q: %w", scanBehaviorParams.Date, err)
		}
		opts.AsOfDate = &asOf
	}
	for _, id := range scanBehaviorParams.PatientIds {
		patientId, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return fmt.Errorf("invalid patient id %q: %w", id, err)
		}
		opts.PatientIds = append(opts.PatientIds, patientId)
	}

	scan := scanner.Run
	if scanBehaviorParams.DryRun {
		scan = scanner.Scan
	}

	result, err := scan(context.TODO(), opts)
	if result == nil {
		return err
	}

	if scanBehaviorParams.DryRun {
		for _, submission := range result.Submissions {
			fmt.Printf("%s %s %s %s\n", submission.PatientId.Hex(), submission.Level.Label(), submission.Title, submission.Content)
		}
	}
	fmt.Printf("Scan %s for %s: %v patients, %v alerts, %v failed\n", result.RunId, result.AsOfDate, result.Patients, len(result.Submissions), len(result.Failed))
	if err != nil {
		logger.Errorw("behavior scan completed with failures", "runId", result.RunId, "error", err)
	}
	return err
}
