package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// User представляет пользователя в системе
type User struct {
	ID              uuid.UUID
	Username        string
	FirstName       string
	LastName        string
	Email           string
	Bio             string
	AvatarURL       string
	City            string
	Country         string
	Latitude        *float64
	Longitude       *float64
	ReputationScore *float64
	ReviewCount     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLoginAt     time.Time
	IsActive        bool
}

// TelegramUser представляет данные пользователя из Telegram
type TelegramUser struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	PhotoURL     string
	IsPremium    bool
	LanguageCode string
	RawData      []byte // JSONB данные
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateOrUpdateTelegramUser создает нового пользователя через Telegram или обновляет существующего
func CreateOrUpdateTelegramUser(telegramID int64, username, firstName, lastName, photoURL string,
	isPremium bool, languageCode string, rawData []byte) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	// Начинаем транзакцию
	tx, err := Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx) // Откатываем транзакцию в случае ошибки

	// Проверяем, существует ли пользователь Telegram
	var telegramUserID uuid.UUID
	var userID uuid.UUID

	err = tx.QueryRow(ctx, `
		SELECT id, user_id FROM telegram_users WHERE telegram_id = $1
	`, telegramID).Scan(&telegramUserID, &userID)

	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("ошибка при проверке существования пользователя Telegram: %w", err)
	}

	// Если пользователь не существует, создаем нового
	if err == pgx.ErrNoRows {
		// Создаем запись в users
		err = tx.QueryRow(ctx, `
			INSERT INTO users (first_name, last_name, username, avatar_url, last_login_at)
			VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
			RETURNING id
		`, firstName, lastName, username, photoURL).Scan(&userID)

		if err != nil {
			return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
		}

		// Создаем запись в telegram_users
		err = tx.QueryRow(ctx, `
			INSERT INTO telegram_users (user_id, telegram_id, username, first_name, last_name, photo_url, is_premium, language_code, raw_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, userID, telegramID, username, firstName, lastName, photoURL, isPremium, languageCode, rawData).Scan(&telegramUserID)

		if err != nil {
			return nil, fmt.Errorf("ошибка при создании Telegram пользователя: %w", err)
		}
	} else {
		// Обновляем время входа у существующего пользователя
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET last_login_at = CURRENT_TIMESTAMP
			WHERE id = $1
		`, userID)

		if err != nil {
			return nil, fmt.Errorf("ошибка при обновлении времени входа пользователя: %w", err)
		}

		// Обновляем данные telegram_users свежими данными из initData
		_, err = tx.Exec(ctx, `
			UPDATE telegram_users
			SET username = $1, first_name = $2, last_name = $3, photo_url = $4,
				is_premium = $5, language_code = $6, raw_data = $7, updated_at = CURRENT_TIMESTAMP
			WHERE id = $8
		`, username, firstName, lastName, photoURL, isPremium, languageCode, rawData, telegramUserID)

		if err != nil {
			return nil, fmt.Errorf("ошибка при обновлении Telegram пользователя: %w", err)
		}
	}

	// Получаем пользователя
	user, err := getUserByID(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}

	// Фиксируем транзакцию
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return user, nil
}

// getUserByID получает пользователя по ID внутри транзакции
func getUserByID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*User, error) {
	return scanUser(tx.QueryRow(ctx, userSelectQuery+` WHERE id = $1`, userID))
}

const userSelectQuery = `
	SELECT id, username, first_name, last_name, email, bio, avatar_url,
		   city, country, latitude, longitude, reputation_score, review_count,
		   created_at, updated_at, last_login_at, is_active
	FROM users`

// scanUser сканирует строку пользователя с учетом nullable полей
func scanUser(row pgx.Row) (*User, error) {
	var user User
	var username, firstName, lastName, email, bio, avatarURL, city, country pgtype.Text
	var latitude, longitude, reputation pgtype.Float8

	err := row.Scan(
		&user.ID, &username, &firstName, &lastName,
		&email, &bio, &avatarURL, &city, &country,
		&latitude, &longitude, &reputation, &user.ReviewCount,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt, &user.IsActive,
	)

	if err != nil {
		return nil, err
	}

	// Преобразуем nullable поля
	if username.Valid {
		user.Username = username.String
	}
	if firstName.Valid {
		user.FirstName = firstName.String
	}
	if lastName.Valid {
		user.LastName = lastName.String
	}
	if email.Valid {
		user.Email = email.String
	}
	if bio.Valid {
		user.Bio = bio.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	if city.Valid {
		user.City = city.String
	}
	if country.Valid {
		user.Country = country.String
	}
	if latitude.Valid {
		user.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		user.Longitude = &longitude.Float64
	}
	if reputation.Valid {
		user.ReputationScore = &reputation.Float64
	}

	return &user, nil
}

// GetUserByID получает пользователя по ID (публичная версия)
func GetUserByID(userID uuid.UUID) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	return scanUser(Pool.QueryRow(ctx, userSelectQuery+` WHERE id = $1`, userID))
}

// GetUserByTelegramID получает пользователя по ID Telegram
func GetUserByTelegramID(telegramID int64) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	var userID uuid.UUID

	err := Pool.QueryRow(ctx, `
		SELECT user_id FROM telegram_users WHERE telegram_id = $1
	`, telegramID).Scan(&userID)

	if err != nil {
		return nil, err
	}

	return GetUserByID(userID)
}

// UpdateProfile обновляет профильные поля пользователя
func UpdateProfile(userID uuid.UUID, bio, city, country string, latitude, longitude *float64) error {
	ctx, cancel := GetContext()
	defer cancel()

	_, err := Pool.Exec(ctx, `
		UPDATE users
		SET bio = $1, city = $2, country = $3, latitude = $4, longitude = $5, updated_at = NOW()
		WHERE id = $6
	`, bio, city, country, latitude, longitude, userID)

	if err != nil {
		return fmt.Errorf("ошибка при обновлении профиля: %w", err)
	}

	return nil
}
