package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAllowsPlainText(t *testing.T) {
	s := NewModerationService()

	ok, reason := s.Validate("Отдам детский велосипед, почти новый", "description")
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, _ = s.Validate("", "description")
	assert.True(t, ok, "пустой текст проходит без проверки")
}

func TestValidateRejectsCurrency(t *testing.T) {
	s := NewModerationService()

	cases := []string{
		"Продам за 500 руб",
		"Отдам за 20$",
		"куплю дешево",
		"Могу перевести через PayPal",
		"for sale, only cash",
	}

	for _, text := range cases {
		ok, reason := s.Validate(text, "description")
		assert.False(t, ok, "текст должен быть отклонен: %q", text)
		assert.Contains(t, reason, "денежной сделки")
	}
}

func TestValidateRejectsContacts(t *testing.T) {
	s := NewModerationService()

	cases := []string{
		"Пишите мне на ivan@example.com",
		"Мой номер +7 915 123-45-67",
		"Давай в whatsapp",
	}

	for _, text := range cases {
		ok, reason := s.Validate(text, "message")
		assert.False(t, ok, "текст должен быть отклонен: %q", text)
		assert.Contains(t, reason, "контактные данные")
	}
}

func TestValidateReasonNamesField(t *testing.T) {
	s := NewModerationService()

	_, reason := s.Validate("продам срочно", "ask_description")
	assert.Contains(t, reason, "ask_description")
}
