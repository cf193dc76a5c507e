// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях движка.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять вызывающей стороне понятные сообщения.
package common

import "errors"

// Ошибки кошелька и квоты
var (
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrInsufficientFunds — недостаточно меритов на счёте
	ErrInsufficientFunds = errors.New("недостаточно меритов на счёте")
	// ErrWalletNotFound — кошелёк не найден
	ErrWalletNotFound = errors.New("кошелёк не найден")
)

// Ошибки голосования
var (
	// ErrSelfVote — попытка проголосовать за собственный контент
	ErrSelfVote = errors.New("нельзя голосовать за собственный контент")
	// ErrPostClosed — публикация закрыта, операции по ней запрещены
	ErrPostClosed = errors.New("публикация закрыта")
	// ErrInvalidDirection — направление голоса не up и не down
	ErrInvalidDirection = errors.New("направление голоса должно быть up или down")
	// ErrTargetNotFound — цель голоса не найдена
	ErrTargetNotFound = errors.New("цель голоса не найдена")
)

// Ошибки инвестиций
var (
	// ErrInvestingDisabled — инвестирование в публикацию выключено
	ErrInvestingDisabled = errors.New("инвестирование в эту публикацию выключено")
	// ErrAuthorCannotInvest — автор не может инвестировать в свою публикацию
	ErrAuthorCannotInvest = errors.New("автор не может инвестировать в собственную публикацию")
	// ErrContractLocked — условия контракта нельзя менять после первой инвестиции
	ErrContractLocked = errors.New("условия контракта зафиксированы после первой инвестиции")
	// ErrInsufficientPoolBalance — в пуле недостаточно средств для выплаты
	ErrInsufficientPoolBalance = errors.New("в инвестиционном пуле недостаточно средств")
)

// Ошибки вывода
var (
	// ErrTargetFrozen — контент заморожен: по нему уже есть голоса или комментарии
	ErrTargetFrozen = errors.New("контент уже получил реакции и не может быть отозван")
	// ErrNotAuthor — операция доступна только автору контента
	ErrNotAuthor = errors.New("операция доступна только автору")
)

// Ошибки согласованности
var (
	// ErrContentionRetryExhausted — атомарный шаг не применился за отведённые попытки
	ErrContentionRetryExhausted = errors.New("операция не применилась из-за конкуренции, попробуйте ещё раз")
	// ErrLedgerInconsistency — компенсация не удалась, возможна потеря или дублирование меритов.
	// Единственная фатальная ошибка: требует ручной сверки журнала.
	ErrLedgerInconsistency = errors.New("нарушена согласованность журнала, требуется ручная сверка")
)

// Ошибки админки
var (
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
