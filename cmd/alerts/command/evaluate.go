package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/alerts/metric"
	"github.com/lungcare/clinic/alerts/questionnaire"
)

var evaluateParams = struct {
	Id string
}{}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single record",
	Long:  "The evaluate command re-runs the alert evaluation of a reading or questionnaire submission",
}

var evaluateReadingCmd = &cobra.Command{
	Use:   "reading {readingId}",
	Args:  cobra.ExactArgs(1),
	Short: "Evaluate a vital sign reading",
	RunE: func(cmd *cobra.Command, args []string) error {
		evaluateParams.Id = args[0]
		return Run(evaluateReading)
	},
}

var evaluateQuestionnaireCmd = &cobra.Command{
	Use:   "questionnaire {submissionId}",
	Args:  cobra.ExactArgs(1),
	Short: "Evaluate a scored questionnaire submission",
	RunE: func(cmd *cobra.Command, args []string) error {
		evaluateParams.Id = args[0]
		return Run(evaluateQuestionnaire)
	},
}

func init() {
	evaluateCmd.AddCommand(evaluateReadingCmd)
	evaluateCmd.AddCommand(evaluateQuestionnaireCmd)
	rootCmd.AddCommand(evaluateCmd)
}

func evaluateReading(evaluator metric.Evaluator) error {
	readingId, err := primitive.ObjectIDFromHex(evaluateParams.Id)
	if err != nil {
		return fmt.Errorf("invalid reading id %q: %w", evaluateParams.Id, err)
	}

	alert, err := evaluator.ProcessById(context.TODO(), readingId)
	if err != nil {
		return err
	}
	printEvaluation(alert)
	return nil
}

func evaluateQuestionnaire(mapper questionnaire.Mapper) error {
	submissionId, err := primitive.ObjectIDFromHex(evaluateParams.Id)
	if err != nil {
		return fmt.Errorf("invalid submission id %q: %w", evaluateParams.Id, err)
	}

	alert, err := mapper.ProcessById(context.TODO(), submissionId)
	if err != nil {
		return err
	}
	printEvaluation(alert)
	return nil
}

func printEvaluation(alert *alerts.Alert) {
	if alert == nil {
		fmt.Println("No alert raised")
		return
	}
	fmt.Printf("%s %s %s %s %s\n", alert.Id.Hex(), alert.Status.Label(), alert.Level.Label(), alert.Title, alert.Content)
}
