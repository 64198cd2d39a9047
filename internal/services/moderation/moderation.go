package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// ModerationService проверяет пользовательский текст на запрещенный контент.
// Площадка обменная: любые упоминания продажи за деньги и попытки увести
// общение за пределы площадки отклоняются.
type ModerationService struct {
	currencyPatterns []*regexp.Regexp
	contactPatterns  []*regexp.Regexp
}

// NewModerationService создает новый экземпляр ModerationService
func NewModerationService() *ModerationService {
	return &ModerationService{
		currencyPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b\d+([.,]\d+)?\s*(руб|рублей|р\.|₽|\$|€|usd|eur|долл)`),
			regexp.MustCompile(`(?i)(продам|продаю|куплю|за деньги|only cash|for sale|wire transfer)`),
			regexp.MustCompile(`(?i)\b(paypal|venmo|iban|swift)\b`),
		},
		contactPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`),
			regexp.MustCompile(`\+?\d[\d\s\-()]{8,}\d`),
			regexp.MustCompile(`(?i)(whatsapp|viber|signal)`),
		},
	}
}

// Validate проверяет текст поля. Возвращает false и описание причины,
// если текст не проходит фильтр.
func (s *ModerationService) Validate(text, field string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true, ""
	}

	for _, p := range s.currencyPatterns {
		if p.MatchString(trimmed) {
			return false, fmt.Sprintf("Поле %q содержит упоминание денежной сделки — площадка только для обмена", field)
		}
	}

	for _, p := range s.contactPatterns {
		if p.MatchString(trimmed) {
			return false, fmt.Sprintf("Поле %q содержит контактные данные — общайтесь внутри площадки", field)
		}
	}

	return true, ""
}
