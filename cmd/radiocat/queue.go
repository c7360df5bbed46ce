package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"radiocat/internal/app"
	"radiocat/internal/domain"
	"radiocat/internal/store"
)

func newQueueCmd() *cobra.Command {
	var taskType string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}
	cmd.PersistentFlags().StringVar(&taskType, "type", "", "filter by task type (download or transcribe)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List queued and in-progress tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := queueTaskService()
			if err != nil {
				return err
			}

			queued, err := tasks.ListQueue(domain.TaskType(taskType))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tTYPE\tSTATUS\tPROGRESS\tCREATED")
			for _, t := range queued {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%s\n",
					t.TaskID, t.Type, t.Status, t.Progress, t.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Cancel all queued and in-progress tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := queueTaskService()
			if err != nil {
				return err
			}

			n, err := tasks.ClearQueue(domain.TaskType(taskType))
			if err != nil {
				return err
			}
			fmt.Printf("%d tasks cancelled\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, clear)
	return cmd
}

func queueTaskService() (*app.TaskService, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := store.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return app.NewTaskService(db, log), nil
}
