package trade

import (
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/swapmap-api/internal/models"
)

func TestCheckStatusTransitionAuthority(t *testing.T) {
	// Принятие, отмена принятия и отклонение доступны только владельцу
	// объявления, отзыв — только автору предложения
	cases := []struct {
		name       string
		target     string
		current    string
		isOwner    bool
		isProposer bool
		wantStatus int
	}{
		{"принять может владелец", models.TradeStatusAccepted, models.TradeStatusPending, true, false, 0},
		{"автор не может принять свое предложение", models.TradeStatusAccepted, models.TradeStatusPending, false, true, fiber.StatusForbidden},
		{"отменить принятие может владелец", models.TradeStatusPending, models.TradeStatusAccepted, true, false, 0},
		{"автор не может отменить принятие", models.TradeStatusPending, models.TradeStatusAccepted, false, true, fiber.StatusForbidden},
		{"отклонить может владелец", models.TradeStatusRejected, models.TradeStatusPending, true, false, 0},
		{"автор не может отклонить", models.TradeStatusRejected, models.TradeStatusPending, false, true, fiber.StatusForbidden},
		{"отозвать может автор", models.TradeStatusWithdrawn, models.TradeStatusPending, false, true, 0},
		{"владелец не может отозвать чужое предложение", models.TradeStatusWithdrawn, models.TradeStatusPending, true, false, fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, errResp := checkStatusTransition(tc.target, tc.current, models.OfferStatusActive, nil, tc.isOwner, tc.isProposer)
			assert.Equal(t, tc.wantStatus, status)
			if tc.wantStatus == 0 {
				assert.Nil(t, errResp)
			} else {
				assert.NotNil(t, errResp)
			}
		})
	}
}

func TestCheckStatusTransitionPreconditions(t *testing.T) {
	other := uuid.New()

	// Принять можно только ожидающее предложение по активному объявлению
	status, _ := checkStatusTransition(models.TradeStatusAccepted, models.TradeStatusRejected, models.OfferStatusActive, nil, true, false)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = checkStatusTransition(models.TradeStatusAccepted, models.TradeStatusPending, models.OfferStatusDeleted, nil, true, false)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Второе принятие по тому же объявлению — конфликт
	status, _ = checkStatusTransition(models.TradeStatusAccepted, models.TradeStatusPending, models.OfferStatusActive, &other, true, false)
	assert.Equal(t, fiber.StatusConflict, status)

	// Отменить принятие можно только у принятого предложения
	status, _ = checkStatusTransition(models.TradeStatusPending, models.TradeStatusPending, models.OfferStatusActive, nil, true, false)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Отклонить и отозвать можно только ожидающее предложение
	status, _ = checkStatusTransition(models.TradeStatusRejected, models.TradeStatusAccepted, models.OfferStatusActive, &other, true, false)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = checkStatusTransition(models.TradeStatusWithdrawn, models.TradeStatusAccepted, models.OfferStatusActive, &other, false, true)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Неизвестный целевой статус отклоняется
	status, _ = checkStatusTransition("exploded", models.TradeStatusPending, models.OfferStatusActive, nil, true, false)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestDisplayStatus(t *testing.T) {
	mine := uuid.New()
	winner := uuid.New()

	// Ожидающее предложение при принятом чужом показывается недоступным
	assert.Equal(t, models.TradeStatusUnavailable, displayStatus(models.TradeStatusPending, mine, &winner))

	// Принятое по этому же объявлению — это само выигравшее предложение
	assert.Equal(t, models.TradeStatusPending, displayStatus(models.TradeStatusPending, mine, &mine))
	assert.Equal(t, models.TradeStatusAccepted, displayStatus(models.TradeStatusAccepted, mine, &mine))

	// Терминальные статусы не перекрашиваются
	assert.Equal(t, models.TradeStatusRejected, displayStatus(models.TradeStatusRejected, mine, &winner))
	assert.Equal(t, models.TradeStatusWithdrawn, displayStatus(models.TradeStatusWithdrawn, mine, &winner))

	// Без принятого предложения статус остается как есть
	assert.Equal(t, models.TradeStatusPending, displayStatus(models.TradeStatusPending, mine, nil))
}

func TestClassifyLock(t *testing.T) {
	assert.Equal(t, lockFree, classifyLock(true, 0))
	assert.Equal(t, lockFree, classifyLock(true, 3), "флаг доступности важнее числа держателей")

	// Недоступную вещь держит объявление или живой обмен — конфликт
	assert.Equal(t, lockHeld, classifyLock(false, 1))
	assert.Equal(t, lockHeld, classifyLock(false, 2))

	// Недоступна без держателя — зависший флаг, чинится на месте
	assert.Equal(t, lockStale, classifyLock(false, 0))
}
