package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flipball-backend/internal/config"
	"flipball-backend/internal/models"
)

// RedisService keeps each account as a JSON document under account:<email>.
type RedisService struct {
	client *redis.Client
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceFromClient(client), nil
}

func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) CreateAccount(ctx context.Context, acc *models.Account) error {
	key := fmt.Sprintf(KeyAccount, acc.Email)

	data, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return storageError("create account", err)
	}
	if !created {
		return ErrDuplicateUser
	}

	return nil
}

func (s *RedisService) GetAccount(ctx context.Context, email string) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, email)

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, storageError("get account", err)
	}

	var acc models.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, storageError("decode account", err)
	}

	return &acc, nil
}

// UpdateLedger runs mutate inside WATCH/MULTI so a concurrent writer on the
// same key forces a re-read instead of a lost update.
func (s *RedisService) UpdateLedger(ctx context.Context, email string, mutate LedgerMutation) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, email)

	var (
		updated *models.Account
		fnErr   error
	)

	txf := func(tx *redis.Tx) error {
		fnErr = s.applyLedger(ctx, tx, key, mutate, &updated)
		return fnErr
	}

	for i := 0; i < maxLedgerRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			if err := waitLedgerRetry(ctx, i); err != nil {
				return nil, storageError("update ledger", err)
			}
			continue
		case err == fnErr:
			return nil, err
		default:
			return nil, storageError("watch account", err)
		}
	}

	return nil, storageError("update ledger", ErrLedgerConflict)
}

func (s *RedisService) applyLedger(ctx context.Context, tx *redis.Tx, key string, mutate LedgerMutation, out **models.Account) error {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrAccountNotFound
	}
	if err != nil {
		return storageError("get account", err)
	}

	var acc models.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return storageError("decode account", err)
	}

	if err := mutate(&acc); err != nil {
		return err
	}
	acc.UpdatedAt = time.Now().UTC()

	updatedData, err := json.Marshal(&acc)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, updatedData, 0)
		return nil
	})
	if errors.Is(err, redis.TxFailedErr) {
		return err
	}
	if err != nil {
		return storageError("save account", err)
	}

	*out = &acc
	return nil
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	key := fmt.Sprintf(KeyAccountTransactions, tx.Email)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, MaxStoredTransactions-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return storageError("save transaction", err)
	}

	return nil
}

func (s *RedisService) GetTransactions(ctx context.Context, email string, limit int64) ([]*models.Transaction, error) {
	limit = models.ClampHistoryLimit(limit)
	key := fmt.Sprintf(KeyAccountTransactions, email)

	items, err := s.client.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, storageError("list transactions", err)
	}

	transactions := make([]*models.Transaction, 0, len(items))
	for _, item := range items {
		var tx models.Transaction
		if err := json.Unmarshal([]byte(item), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}
