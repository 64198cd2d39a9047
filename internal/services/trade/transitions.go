package trade

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/swapmap-api/internal/models"
)

// checkStatusTransition проверяет право пользователя на смену статуса
// предложения и допустимость самого перехода. Принятие и отклонение
// доступны владельцу объявления, отзыв — автору предложения.
// Возвращает (0, nil), если переход разрешен.
func checkStatusTransition(target, current, offerStatus string, acceptedTradeID *uuid.UUID, isOwner, isProposer bool) (int, fiber.Map) {
	switch target {
	case models.TradeStatusAccepted:
		if !isOwner {
			return fiber.StatusForbidden, fiber.Map{"error": "Только владелец объявления может принять предложение"}
		}
		if current != models.TradeStatusPending {
			return fiber.StatusBadRequest, fiber.Map{"error": "Можно принять только ожидающее предложение"}
		}
		if offerStatus != models.OfferStatusActive {
			return fiber.StatusBadRequest, fiber.Map{"error": "Объявление больше не активно"}
		}
		if acceptedTradeID != nil {
			return fiber.StatusConflict, fiber.Map{"error": "По этому объявлению уже принято другое предложение"}
		}

	case models.TradeStatusPending:
		// Отмена принятия: владелец возвращает предложение в ожидание
		if !isOwner {
			return fiber.StatusForbidden, fiber.Map{"error": "Только владелец объявления может отменить принятие"}
		}
		if current != models.TradeStatusAccepted {
			return fiber.StatusBadRequest, fiber.Map{"error": "Отменить принятие можно только у принятого предложения"}
		}

	case models.TradeStatusRejected:
		if !isOwner {
			return fiber.StatusForbidden, fiber.Map{"error": "Только владелец объявления может отклонить предложение"}
		}
		if current != models.TradeStatusPending {
			return fiber.StatusBadRequest, fiber.Map{"error": "Можно отклонить только ожидающее предложение"}
		}

	case models.TradeStatusWithdrawn:
		if !isProposer {
			return fiber.StatusForbidden, fiber.Map{"error": "Только автор предложения может его отозвать"}
		}
		if current != models.TradeStatusPending {
			return fiber.StatusBadRequest, fiber.Map{"error": "Можно отозвать только ожидающее предложение"}
		}

	default:
		return fiber.StatusBadRequest, fiber.Map{"error": "Недопустимый статус предложения обмена"}
	}

	return 0, nil
}

// displayStatus вычисляет статус предложения для выдачи клиенту.
// Ожидающее предложение при принятом чужом показывается как
// недоступное; в базе этот статус никогда не хранится.
func displayStatus(status string, tradeID uuid.UUID, acceptedTradeID *uuid.UUID) string {
	if status == models.TradeStatusPending && acceptedTradeID != nil && *acceptedTradeID != tradeID {
		return models.TradeStatusUnavailable
	}
	return status
}

type lockVerdict int

const (
	lockFree  lockVerdict = iota // вещь свободна
	lockHeld                     // вещь держит активное объявление или живой обмен
	lockStale                    // флаг завис без держателя, чинится на месте
)

// classifyLock разбирает флаг доступности вещи по числу держателей:
// активных объявлений плюс ожидающих или принятых обменов с этой вещью
func classifyLock(isAvailable bool, holders int) lockVerdict {
	if isAvailable {
		return lockFree
	}
	if holders > 0 {
		return lockHeld
	}
	return lockStale
}
