package sync

import "reflect"

// Служебные поля, не участвующие в сравнении содержимого
var serviceFields = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
}

// DetectConflict решает, конфликтует ли входящая запись с сохраненной.
// Возвращает (conflict, soft): soft — метки времени расходятся, но
// содержимое идентично (повторная доставка, не требует разрешения).
// Порядок проверок важен: дешевое сравнение меток отсекает типовой
// случай повторного pull без полного прохода по полям.
func DetectConflict(existing, incoming Record) (bool, bool) {
	existingTS, okExisting := existing.UpdatedAt()
	incomingTS, okIncoming := incoming.UpdatedAt()

	// Записи без метки считаем неотслеживаемыми и пропускаем как есть
	if !okExisting || !okIncoming {
		return false, false
	}

	// Одна и та же запись, увиденная дважды
	if existingTS == incomingTS {
		return false, false
	}

	if contentEqual(existing, incoming) {
		return false, true
	}

	return true, false
}

// contentEqual сравнивает все поля, кроме служебных
func contentEqual(a, b Record) bool {
	for key, av := range a {
		if _, skip := serviceFields[key]; skip {
			continue
		}
		bv, ok := b[key]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	for key := range b {
		if _, skip := serviceFields[key]; skip {
			continue
		}
		if _, ok := a[key]; !ok {
			return false
		}
	}
	return true
}
