// cmd/client/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"bizsync/cmd/client/cmd/conflicts"
	"bizsync/cmd/client/cmd/devices"
	syncCmd "bizsync/cmd/client/cmd/sync"
	"bizsync/internal/app/client"
	"bizsync/internal/app/client/config"
	"bizsync/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "bizsync",
	Short: "Bizsync - клиент синхронизации данных малого бизнеса",
	Long: `Bizsync — клиентское приложение для синхронизации клиентов, товаров,
счетов, записей и платежей между устройствами и сервером.

Локальные правки накапливаются в кэше устройства и отправляются на сервер
при синхронизации; конфликты разрешаются по выбранной стратегии.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(_ *cobra.Command, _ []string) error {
	// Загружаем конфигурацию
	cfg = config.MustLoad()

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	// Настраиваем логгер
	log = logger.New(cfg.Env)

	// Создаем приложение
	var err error
	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	return nil
}

func getApp() *client.App {
	return app
}

func init() {
	cobra.OnInitialize()

	// Глобальные флаги
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера Bizsync")

	rootCmd.AddCommand(devices.NewCmd(getApp))
	rootCmd.AddCommand(syncCmd.NewCmd(getApp))
	rootCmd.AddCommand(conflicts.NewCmd(getApp))
}
