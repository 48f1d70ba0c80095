package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"textvision/internal/infra"
	"textvision/internal/sqlinline"
)

const (
	ProviderArk = "volcano_ark"
)

// Store reads and writes provider API keys kept in integration_tokens.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// ArkAPIKey returns the stored Ark key or "" when none is configured.
func (s *Store) ArkAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderArk)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetArkAPIKey stores key with the model names it was issued for.
func (s *Store) SetArkAPIKey(ctx context.Context, key string, models map[string]any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("ark api key is required")
	}
	return s.upsert(ctx, ProviderArk, key, models)
}

// ResolveArkAPIKey prefers the configured key and falls back to the store.
func (s *Store) ResolveArkAPIKey(ctx context.Context, configured string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	return s.ArkAPIKey(ctx)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
