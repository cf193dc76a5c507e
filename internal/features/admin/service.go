// Package admin — service.go содержит логику аутентификации и управления
// экономическими настройками сообществ.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/config"
	"meritburo.ru/merit-engine/internal/features/wallet"
)

// communityEconomy — настройки экономики сообщества, которыми управляет админ.
type communityEconomy interface {
	UpdateEconomy(ctx context.Context, communityID int64, quotaMax int64, investorShare int, investingEnabled bool) error
}

// walletLedger — операции кошелька для ручных корректировок.
type walletLedger interface {
	Credit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
	Debit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
}

// Service управляет служебным доступом.
type Service struct {
	repo        *Repository
	communities communityEconomy
	wallets     walletLedger
	cfg         *config.Config
}

// NewService создаёт сервис служебного доступа.
func NewService(repo *Repository, communities communityEconomy, wallets walletLedger, cfg *config.Config) *Service {
	return &Service{repo: repo, communities: communities, wallets: wallets, cfg: cfg}
}

// Login проверяет пароль администратора с использованием Argon2id и выдаёт
// токен сессии. Включает защиту от brute-force: 3 неудачные попытки =
// блокировка на 1 час.
func (s *Service) Login(ctx context.Context, userID int64, password string) (string, error) {
	attempts, err := s.repo.GetRecentAttempts(ctx, userID, 1*time.Hour)
	if err != nil {
		return "", err
	}
	if attempts >= 3 {
		return "", common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.cfg.AdminPasswordHash)

	if err := s.repo.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Error("Ошибка записи попытки входа")
	}

	if !match {
		return "", common.ErrWrongPassword
	}

	token := generateSecureToken()
	session := &Session{
		UserID:       userID,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return "", err
	}

	log.WithField("user_id", userID).Info("Администратор авторизован")
	return token, nil
}

// Authenticate проверяет токен сессии и возвращает ID администратора.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, common.ErrSessionExpired
	}
	session, err := s.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return 0, err
	}
	return session.UserID, nil
}

// Logout деактивирует все сессии администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeactivateSessions(ctx, userID)
}

// UpdateCommunityEconomy меняет экономические настройки сообщества:
// дневную квоту, долю инвесторов по умолчанию и доступность инвестирования.
func (s *Service) UpdateCommunityEconomy(ctx context.Context, communityID int64, quotaMax int64, investorShare int, investingEnabled bool) error {
	if err := s.communities.UpdateEconomy(ctx, communityID, quotaMax, investorShare, investingEnabled); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"community_id":      communityID,
		"quota_max":         quotaMax,
		"investor_share":    investorShare,
		"investing_enabled": investingEnabled,
	}).Info("Экономика сообщества обновлена")
	return nil
}

// AdjustWallet вручную корректирует кошелёк пользователя: положительная
// дельта зачисляется, отрицательная списывается обычным guarded-дебетом.
// Запись в журнале помечается типом admin_adjust с указанием причины.
func (s *Service) AdjustWallet(ctx context.Context, adminID, userID, communityID, delta int64, reason string) (int64, error) {
	if delta == 0 {
		return 0, common.ErrInvalidAmount
	}

	description := "Корректировка администратором"
	if reason != "" {
		description += ": " + reason
	}

	var balance int64
	var err error
	if delta > 0 {
		balance, err = s.wallets.Credit(ctx, userID, communityID, delta, wallet.EntryAdminAdjust, description, nil)
	} else {
		balance, err = s.wallets.Debit(ctx, userID, communityID, -delta, wallet.EntryAdminAdjust, description, nil)
	}
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"admin_id":     adminID,
		"user_id":      userID,
		"community_id": communityID,
		"delta":        delta,
	}).Info("Кошелёк скорректирован администратором")
	return balance, nil
}

// --- Криптографические утилиты ---

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравнение в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует криптографически безопасный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
