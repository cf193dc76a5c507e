// Package saga реализует двухфазные цепочки «резерв — компенсация».
// Многошаговые денежные операции (квота → кошелёк, кошелёк → пул)
// не накрыты одной глобальной транзакцией, поэтому при падении шага
// эффекты предыдущих шагов явно откатываются в обратном порядке.
package saga

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/common"
)

// Step — один шаг цепочки. Apply применяет эффект, Compensate отменяет его.
// Compensate может быть nil, если шаг не оставляет следов (чистая проверка).
type Step struct {
	Name       string
	Apply      func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Run выполняет шаги по порядку. При ошибке шага компенсирует уже
// применённые шаги в обратном порядке и возвращает исходную ошибку.
//
// Если компенсация сама упала — операция эскалируется как
// common.ErrLedgerInconsistency: возможна потеря или дублирование меритов,
// и это чинится только ручной сверкой по журналу.
func Run(ctx context.Context, steps []Step) error {
	applied := make([]Step, 0, len(steps))

	for _, step := range steps {
		if err := step.Apply(ctx); err != nil {
			if cerr := compensate(ctx, applied); cerr != nil {
				log.WithFields(log.Fields{
					"failed_step":      step.Name,
					"compensate_error": cerr,
				}).Error("СВЕРКА: компенсация не удалась, журнал рассогласован")
				return fmt.Errorf("%w: шаг %q: %v (компенсация: %v)",
					common.ErrLedgerInconsistency, step.Name, err, cerr)
			}
			return err
		}
		applied = append(applied, step)
	}
	return nil
}

// compensate откатывает применённые шаги в обратном порядке.
// Возвращает первую ошибку компенсации.
func compensate(ctx context.Context, applied []Step) error {
	for i := len(applied) - 1; i >= 0; i-- {
		step := applied[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			return fmt.Errorf("шаг %q: %w", step.Name, err)
		}
	}
	return nil
}
