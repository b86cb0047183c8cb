package devices

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bizsync/internal/app/client"
)

var (
	deviceName string
	deviceType string
)

// NewCmd собирает команду devices с подкомандами
func NewCmd(getApp func() *client.App) *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Управление устройствами",
		Long: `Реестр устройств, участвующих в синхронизации.

Команда позволяет регистрировать устройства, просматривать их список,
состояние и удалять устройства из реестра.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDevices(cmd, getApp())
		},
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Зарегистрировать это устройство",
		RunE: func(cmd *cobra.Command, args []string) error {
			return registerDevice(cmd, getApp())
		},
	}
	registerCmd.Flags().StringVar(&deviceName, "name", "", "имя устройства (по умолчанию hostname)")
	registerCmd.Flags().StringVar(&deviceType, "type", "desktop", "тип устройства")

	removeCmd := &cobra.Command{
		Use:   "remove <device_id>",
		Short: "Удалить устройство из реестра",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeDevice(cmd, getApp(), args[0])
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status [device_id]",
		Short: "Показать состояние устройства",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID := ""
			if len(args) > 0 {
				deviceID = args[0]
			}
			return deviceStatus(cmd, getApp(), deviceID)
		},
	}

	devicesCmd.AddCommand(registerCmd)
	devicesCmd.AddCommand(removeCmd)
	devicesCmd.AddCommand(statusCmd)

	return devicesCmd
}

func registerDevice(cmd *cobra.Command, app *client.App) error {
	if app.IsRegistered() {
		color.Yellow("Устройство уже зарегистрировано: %s", app.DeviceID())
		return nil
	}

	deviceID, err := app.RegisterDevice(cmd.Context(), deviceName, deviceType)
	if err != nil {
		return err
	}

	color.Green("Устройство зарегистрировано")
	fmt.Printf("ID устройства: %s\n", deviceID)

	return nil
}

func listDevices(cmd *cobra.Command, app *client.App) error {
	devices, err := app.GetDevices(cmd.Context())
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("Зарегистрированных устройств нет")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Println("Устройства:")
	for _, dev := range devices {
		marker := "  "
		if dev.ID == app.DeviceID() {
			marker = "* "
		}
		lastSync := "никогда"
		if dev.LastSyncAt != nil {
			lastSync = dev.LastSyncAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s%s  %s (%s)\n", marker, dev.ID, dev.Name, dev.Type)
		fmt.Printf("    стратегия: %s, последняя синхронизация: %s\n", dev.Strategy, lastSync)
	}

	return nil
}

func removeDevice(cmd *cobra.Command, app *client.App, deviceID string) error {
	if err := app.RemoveDevice(cmd.Context(), deviceID); err != nil {
		return err
	}

	color.Green("Устройство %s удалено", deviceID)
	return nil
}

func deviceStatus(cmd *cobra.Command, app *client.App, deviceID string) error {
	if deviceID == "" {
		if !app.IsRegistered() {
			return fmt.Errorf("устройство не зарегистрировано. Выполните: bizsync devices register")
		}
		deviceID = app.DeviceID()
	}

	status, err := app.DeviceStatus(cmd.Context(), deviceID)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Printf("Устройство %s\n", status.Device.ID)
	fmt.Printf("Имя: %s\n", status.Device.Name)
	fmt.Printf("Стратегия: %s\n", status.Device.Strategy)
	fmt.Printf("Накопившихся изменений: %d\n", status.PendingChanges)

	if status.SyncState == "synced" {
		color.Green("Состояние: синхронизировано")
	} else {
		color.Yellow("Состояние: требуется синхронизация")
	}

	return nil
}
