package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/todos"
)

var todosCmd = &cobra.Command{
	Use:   "todos",
	Short: "Staff to-do lists",
	Long:  "The todos command is used to inspect the alerts awaiting staff action",
}

var todosExportParams = struct {
	DoctorIds []string
	Status    string
	StartDate string
	EndDate   string
	Out       string
}{}

var todosExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a to-do list as a spreadsheet",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(exportTodos) },
}

func init() {
	todosExportCmd.Flags().StringArrayVar(&todosExportParams.DoctorIds, "doctor", nil, "Doctor id whose patients are exported, can be repeated")
	todosExportCmd.Flags().StringVar(&todosExportParams.Status, "status", todos.StatusAll, "Status code (pending, escalate, completed or all)")
	todosExportCmd.Flags().StringVar(&todosExportParams.StartDate, "start-date", "", "First event day (YYYY-MM-DD)")
	todosExportCmd.Flags().StringVar(&todosExportParams.EndDate, "end-date", "", "Last event day (YYYY-MM-DD)")
	todosExportCmd.Flags().StringVar(&todosExportParams.Out, "out", "todos.xlsx", "Output file")
	_ = todosExportCmd.MarkFlagRequired("doctor")

	todosCmd.AddCommand(todosExportCmd)
	rootCmd.AddCommand(todosCmd)
}

func exportTodos(service todos.Service) error {
	viewer := todos.Viewer{UserId: "cli"}
	for _, id := range todosExportParams.DoctorIds {
		doctorId, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return fmt.Errorf("invalid doctor id %q: %w", id, err)
		}
		viewer.DoctorIds = append(viewer.DoctorIds, doctorId)
	}

	file, err := service.Export(context.TODO(), viewer, todos.Filter{
		Status:    todosExportParams.Status,
		StartDate: todosExportParams.StartDate,
		EndDate:   todosExportParams.EndDate,
	})
	if err != nil {
		return err
	}

	if err := file.Save(todosExportParams.Out); err != nil {
		return fmt.Errorf("unable to save %s: %w", todosExportParams.Out, err)
	}
	fmt.Printf("Exported to-do list to %s\n", todosExportParams.Out)
	return nil
}
