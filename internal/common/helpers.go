// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с квотными сутками (UTC), форматирование времени,
// русская плюрализация меритов (pluralize.go).
package common

import "time"

// DayKeyLayout — формат ключа квотных суток: 2006-01-02.
const DayKeyLayout = "2006-01-02"

// DayKeyUTC возвращает ключ квотных суток для момента t.
// Квота привязана к календарным суткам UTC: новый ключ — новая квота,
// фоновый сброс не нужен.
//
// Примеры:
//
//	DayKeyUTC(2026-03-01T23:59:59Z) → "2026-03-01"
//	DayKeyUTC(2026-03-02T00:00:00Z) → "2026-03-02"
func DayKeyUTC(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// StartOfDayUTC возвращает полночь UTC для суток, в которые попадает t.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDayUTC возвращает момент следующей полуночи UTC — время, когда
// квота «сбросится» (фактически просто начнёт действовать новая запись).
func NextDayUTC(t time.Time) time.Time {
	return StartOfDayUTC(t).Add(24 * time.Hour)
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (UTC).
// Используется для отображения дат транзакций и инвестиций.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04")
}
