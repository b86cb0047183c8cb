package sync

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bizsync/internal/app/client"
)

var (
	syncStatus  bool
	showHistory bool
	strategy    string
)

// NewCmd собирает команду sync
func NewCmd(getApp func() *client.App) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Синхронизация с сервером",
		Long: `Синхронизация локального кэша с сервером.

Отправляет накопившиеся локальные правки, забирает серверные изменения
и передвигает водяной знак устройства.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp()

			if syncStatus {
				return showSyncStatus(app)
			}

			if showHistory {
				return showSyncHistory(cmd, app)
			}

			if strategy != "" {
				return setStrategy(cmd, app)
			}

			return runSync(cmd, app)
		},
	}

	syncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статистику синхронизации")
	syncCmd.Flags().BoolVar(&showHistory, "history", false, "показать журнал синхронизаций")
	syncCmd.Flags().StringVar(&strategy, "strategy", "", "сменить стратегию разрешения конфликтов (latest_wins, server_wins, client_wins, manual)")

	return syncCmd
}

func runSync(cmd *cobra.Command, app *client.App) error {
	if !app.IsRegistered() {
		return fmt.Errorf("устройство не зарегистрировано. Выполните: bizsync devices register")
	}

	fmt.Println("Проверка соединения с сервером...")
	if err := app.CheckConnection(); err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}

	fmt.Println("Начало синхронизации...")
	result, err := app.Sync(cmd.Context())
	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	color.Green("Синхронизация завершена")
	fmt.Printf("Время выполнения: %v\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("Отправлено на сервер: %d записей\n", result.Pushed)
	fmt.Printf("Получено с сервера: %d записей\n", result.Pulled)

	if result.Conflicts > 0 {
		color.Yellow("Конфликтов: %d", result.Conflicts)
		fmt.Println("Используйте 'bizsync conflicts' для просмотра отложенных конфликтов")
	}

	if result.Errors > 0 {
		color.Red("Ошибок: %d", result.Errors)
		shown := 0
		for _, detail := range result.Details {
			if detail.Error == "" {
				continue
			}
			if shown < 3 {
				fmt.Printf("  • %s/%s: %s\n", detail.Table, detail.RecordID, detail.Error)
			}
			shown++
		}
		if shown > 3 {
			fmt.Printf("  ... и еще %d ошибок\n", shown-3)
		}
	}

	return nil
}

func showSyncStatus(app *client.App) error {
	stats := app.GetSyncService().GetStats()

	bold := color.New(color.Bold)
	bold.Println("Статистика синхронизации:")
	fmt.Printf("  Всего синхронизаций: %d\n", stats.TotalSyncs)
	fmt.Printf("  Отправлено на сервер: %d записей\n", stats.TotalPushed)
	fmt.Printf("  Получено с сервера: %d записей\n", stats.TotalPulled)
	fmt.Printf("  Конфликтов: %d\n", stats.TotalConflicts)
	fmt.Printf("  Ошибок: %d\n", stats.TotalErrors)

	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("  Последняя успешная: %s\n",
			stats.LastSuccessful.Format("2006-01-02 15:04:05"))
	}

	fmt.Print("Соединение с сервером: ")
	if err := app.CheckConnection(); err != nil {
		color.Red("недоступно (%v)", err)
	} else {
		color.Green("OK")
	}

	return nil
}

func showSyncHistory(cmd *cobra.Command, app *client.App) error {
	entries, err := app.GetHistory(cmd.Context(), app.DeviceID(), 20)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("Журнал синхронизаций пуст")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Println("Журнал синхронизаций:")
	for _, entry := range entries {
		fmt.Printf("  %s  применено: %d, конфликтов: %d, ошибок: %d\n",
			entry.SyncedAt.Format("2006-01-02 15:04:05"),
			entry.Applied, entry.Conflicts, entry.Errors)
	}

	return nil
}

func setStrategy(cmd *cobra.Command, app *client.App) error {
	if err := app.SetStrategy(cmd.Context(), strategy); err != nil {
		return err
	}

	color.Green("Стратегия устройства изменена: %s", strategy)
	return nil
}
