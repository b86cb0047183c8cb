package sync

import "fmt"

// Table имя таблицы, разрешенной для синхронизации
type Table string

const (
	TableCustomers    Table = "customers"
	TableProducts     Table = "products"
	TableInvoices     Table = "invoices"
	TableAppointments Table = "appointments"
	TablePayments     Table = "payments"
)

// Tables закрытый список таблиц, порядок фиксирует порядок обработки
var Tables = []Table{
	TableCustomers,
	TableProducts,
	TableInvoices,
	TableAppointments,
	TablePayments,
}

// ParseTable проверяет имя таблицы по вайтлисту
func ParseTable(name string) (Table, error) {
	for _, t := range Tables {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrDisallowedTable, name)
}

// IsAllowed проверяет, разрешена ли таблица для синхронизации
func IsAllowed(name string) bool {
	_, err := ParseTable(name)
	return err == nil
}
