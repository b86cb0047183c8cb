package conflicts

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bizsync/internal/app/client"
)

var chosenVersion string

// NewCmd собирает команду conflicts с подкомандой resolve
func NewCmd(getApp func() *client.App) *cobra.Command {
	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Отложенные конфликты синхронизации",
		Long: `Просмотр и ручное разрешение конфликтов, отложенных стратегией manual.

До разрешения конфликта сервер хранит прежнюю версию записи.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listConflicts(cmd, getApp())
		},
	}

	resolveCmd := &cobra.Command{
		Use:   "resolve <conflict_id>",
		Short: "Разрешить конфликт вручную",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conflictID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("некорректный идентификатор конфликта: %s", args[0])
			}
			return resolveConflict(cmd, getApp(), conflictID)
		},
	}
	resolveCmd.Flags().StringVar(&chosenVersion, "choose", "", "выбранная версия: existing или incoming")
	resolveCmd.MarkFlagRequired("choose")

	conflictsCmd.AddCommand(resolveCmd)

	return conflictsCmd
}

func listConflicts(cmd *cobra.Command, app *client.App) error {
	conflicts, err := app.GetConflicts(cmd.Context())
	if err != nil {
		return err
	}

	if len(conflicts) == 0 {
		color.Green("Неразрешенных конфликтов нет")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Printf("Неразрешенных конфликтов: %d\n", len(conflicts))
	for _, conflict := range conflicts {
		fmt.Printf("\n#%d  %s/%s  (%s)\n",
			conflict.ID, conflict.Table, conflict.RecordID,
			conflict.CreatedAt.Format("2006-01-02 15:04:05"))

		existing, _ := json.Marshal(conflict.ExistingData)
		incoming, _ := json.Marshal(conflict.IncomingData)
		fmt.Printf("  серверная версия:  %s\n", existing)
		fmt.Printf("  входящая версия:   %s\n", incoming)
	}

	fmt.Println("\nДля разрешения: bizsync conflicts resolve <id> --choose existing|incoming")

	return nil
}

func resolveConflict(cmd *cobra.Command, app *client.App, conflictID int64) error {
	if chosenVersion != "existing" && chosenVersion != "incoming" {
		return fmt.Errorf("--choose принимает existing или incoming")
	}

	if err := app.ResolveConflict(cmd.Context(), conflictID, chosenVersion); err != nil {
		return err
	}

	color.Green("Конфликт #%d разрешен (%s)", conflictID, chosenVersion)
	return nil
}
