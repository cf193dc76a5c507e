// Package app инициализирует все компоненты движка.
// app.go — точка сборки: создаёт БД-пул, кеш, шину событий, репозитории,
// сервисы и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/api"
	"meritburo.ru/merit-engine/internal/cache"
	"meritburo.ru/merit-engine/internal/config"
	"meritburo.ru/merit-engine/internal/db/postgres"
	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/admin"
	"meritburo.ru/merit-engine/internal/features/community"
	"meritburo.ru/merit-engine/internal/features/investment"
	"meritburo.ru/merit-engine/internal/features/lifecycle"
	"meritburo.ru/merit-engine/internal/features/publication"
	"meritburo.ru/merit-engine/internal/features/quota"
	"meritburo.ru/merit-engine/internal/features/vote"
	"meritburo.ru/merit-engine/internal/features/wallet"
	"meritburo.ru/merit-engine/internal/features/withdrawal"
	"meritburo.ru/merit-engine/internal/jobs"
	"meritburo.ru/merit-engine/internal/notify"
)

// App содержит все компоненты движка.
type App struct {
	Server    *api.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Bus       *events.Bus
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Инфраструктура ===
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	displayCache := cache.New(redisClient, cfg.CacheTTL)
	bus := events.NewBus()

	// === 3. Репозитории ===
	communityRepo := community.NewRepository(pool)
	walletRepo := wallet.NewRepository(pool)
	quotaRepo := quota.NewRepository(pool)
	publicationRepo := publication.NewRepository(pool)
	voteRepo := vote.NewRepository(pool)
	investmentRepo := investment.NewRepository(pool)
	withdrawalRepo := withdrawal.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	communityService := community.NewService(communityRepo, cfg)
	walletService := wallet.NewService(walletRepo, displayCache)
	quotaService := quota.NewService(quotaRepo, communityService, displayCache)
	publicationService := publication.NewService(publicationRepo, walletService, communityService)
	investmentService := investment.NewService(investmentRepo, walletService, publicationService, displayCache, bus)
	lifecycleService := lifecycle.NewService(publicationRepo, investmentService, bus, cfg.TTLWarningThreshold)
	voteService := vote.NewService(voteRepo, quotaService, walletService, publicationService, lifecycleService, bus, cfg.ContentionRetries)
	withdrawalService := withdrawal.NewService(withdrawalRepo, investmentService, displayCache, bus)
	adminService := admin.NewService(adminRepo, communityService, walletService, cfg)

	// === 5. Уведомления ===
	notifier, err := notify.NewNotifier(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации уведомлений: %w", err)
	}
	bus.Subscribe(notifier.HandleEvent)

	// === 6. HTTP-сервер ===
	server := api.NewServer(cfg, api.Services{
		Votes:        voteService,
		Quotas:       quotaService,
		Wallets:      walletService,
		Publications: publicationService,
		Investments:  investmentService,
		Withdrawals:  withdrawalService,
		Admins:       adminService,
	})

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(lifecycleService, adminRepo)

	return &App{
		Server:    server,
		Scheduler: scheduler,
		DB:        pool,
		Bus:       bus,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Communities},
		{2, migration002Wallets},
		{3, migration003Quotas},
		{4, migration004Publications},
		{5, migration005Votes},
		{6, migration006Investments},
		{7, migration007Admin},
		{8, migration008PoolAccrual},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Communities = `
CREATE TABLE IF NOT EXISTS communities (
    id BIGINT PRIMARY KEY,
    title VARCHAR(255) NOT NULL DEFAULT '',
    quota_max BIGINT NOT NULL,
    default_investor_share INTEGER NOT NULL DEFAULT 0,
    investing_enabled BOOLEAN DEFAULT TRUE,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
`

var migration002Wallets = `
CREATE TABLE IF NOT EXISTS wallets (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    community_id BIGINT NOT NULL,
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_earned BIGINT NOT NULL DEFAULT 0,
    total_spent BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (user_id, community_id)
);
CREATE TABLE IF NOT EXISTS wallet_entries (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    community_id BIGINT NOT NULL,
    amount BIGINT NOT NULL,
    entry_type VARCHAR(50) NOT NULL,
    reference_id UUID,
    description TEXT,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_wallet_entries_owner ON wallet_entries(user_id, community_id, created_at DESC);
`

var migration003Quotas = `
CREATE TABLE IF NOT EXISTS quotas (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    community_id BIGINT NOT NULL,
    day_key VARCHAR(10) NOT NULL,
    remaining BIGINT NOT NULL CHECK (remaining >= 0),
    max_amount BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (user_id, community_id, day_key)
);
`

var migration004Publications = `
CREATE TABLE IF NOT EXISTS publications (
    id UUID PRIMARY KEY,
    author_id BIGINT NOT NULL,
    community_id BIGINT NOT NULL,
    status VARCHAR(10),
    rating_score BIGINT NOT NULL DEFAULT 0,
    stake BIGINT NOT NULL DEFAULT 0,
    investing_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    investor_share_percent INTEGER NOT NULL DEFAULT 0,
    investment_pool_balance BIGINT NOT NULL DEFAULT 0 CHECK (investment_pool_balance >= 0),
    investment_pool_total BIGINT NOT NULL DEFAULT 0,
    ttl_expires_at TIMESTAMP,
    stop_loss BIGINT NOT NULL DEFAULT 0,
    last_earned_at TIMESTAMP,
    ttl_warning_notified BOOLEAN,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_publications_community ON publications(community_id, rating_score DESC);
CREATE INDEX IF NOT EXISTS idx_publications_ttl ON publications(ttl_expires_at) WHERE ttl_expires_at IS NOT NULL;
CREATE TABLE IF NOT EXISTS comments (
    id UUID PRIMARY KEY,
    publication_id UUID NOT NULL REFERENCES publications(id),
    author_id BIGINT NOT NULL,
    vote_id UUID,
    body TEXT NOT NULL,
    plus BIGINT NOT NULL DEFAULT 0,
    minus BIGINT NOT NULL DEFAULT 0,
    amount_total BIGINT NOT NULL DEFAULT 0,
    direction_plus BOOLEAN NOT NULL DEFAULT TRUE,
    withdrawn BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_publication ON comments(publication_id);
`

var migration005Votes = `
CREATE TABLE IF NOT EXISTS vote_transactions (
    id UUID PRIMARY KEY,
    voter_id BIGINT NOT NULL,
    community_id BIGINT NOT NULL,
    target_type VARCHAR(20) NOT NULL,
    target_id UUID NOT NULL,
    direction VARCHAR(4) NOT NULL,
    amount_total BIGINT NOT NULL CHECK (amount_total > 0),
    amount_from_quota BIGINT NOT NULL CHECK (amount_from_quota >= 0),
    amount_from_wallet BIGINT NOT NULL CHECK (amount_from_wallet >= 0),
    comment TEXT,
    created_at TIMESTAMP DEFAULT NOW(),
    CHECK (amount_from_quota + amount_from_wallet = amount_total)
);
CREATE INDEX IF NOT EXISTS idx_vote_transactions_target ON vote_transactions(target_type, target_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_vote_transactions_voter ON vote_transactions(voter_id);
`

var migration006Investments = `
CREATE TABLE IF NOT EXISTS investments (
    id UUID PRIMARY KEY,
    post_id UUID NOT NULL REFERENCES publications(id),
    investor_id BIGINT NOT NULL,
    amount BIGINT NOT NULL CHECK (amount > 0),
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_investments_post ON investments(post_id);
CREATE INDEX IF NOT EXISTS idx_investments_investor ON investments(post_id, investor_id);
`

var migration007Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP,
    last_activity TIMESTAMP DEFAULT NOW(),
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_token ON admin_sessions(session_token);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMP DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time DESC);
`

// Учёт накопительных выплат пула: пожизненный приток на публикации и
// выведенные каждым участником суммы. Для старых строк приток
// инициализируется текущим остатком — история их выводов неизвестна.
var migration008PoolAccrual = `
ALTER TABLE publications ADD COLUMN IF NOT EXISTS investment_pool_earned BIGINT NOT NULL DEFAULT 0;
UPDATE publications SET investment_pool_earned = investment_pool_balance WHERE investment_pool_earned = 0;
CREATE TABLE IF NOT EXISTS pool_withdrawals (
    post_id UUID NOT NULL REFERENCES publications(id),
    user_id BIGINT NOT NULL,
    amount BIGINT NOT NULL CHECK (amount >= 0),
    updated_at TIMESTAMP DEFAULT NOW(),
    PRIMARY KEY (post_id, user_id)
);
`
