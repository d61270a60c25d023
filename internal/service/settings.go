package service

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository"
	"go.uber.org/zap"
)

//go:embed defaults/*.json
var defaultDocuments embed.FS

const settingsCacheNamespace = "settings"

// SettingsCache is the subset of cache.Cache the settings store uses.
type SettingsCache interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
}

type SettingsService struct {
	repo     repository.Store
	logger   *zap.Logger
	cache    SettingsCache
	cacheTTL time.Duration
}

func NewSettingsService(repo repository.Store, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// SetCache enables the read-through document cache.
func (s *SettingsService) SetCache(cache SettingsCache, ttl time.Duration) {
	s.cache = cache
	s.cacheTTL = ttl
}

// Defaults returns the compiled-in document of a namespace, or an empty one.
func Defaults(namespace string) model.Document {
	if !model.IsSettingsNamespace(namespace) {
		return model.Document{}
	}
	data, err := defaultDocuments.ReadFile("defaults/" + namespace + ".json")
	if err != nil {
		return model.Document{}
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return model.Document{}
	}
	return doc
}

func decodeDocument(data []byte) (model.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc model.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = model.Document{}
	}
	return doc, nil
}

// Get never fails: missing rows, broken JSON and storage errors all fall
// back to the defaults.
func (s *SettingsService) Get(ctx context.Context, namespace string) model.Document {
	if !model.IsSettingsNamespace(namespace) {
		return model.Document{}
	}

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, settingsCacheNamespace, namespace); err == nil {
			if doc, err := decodeDocument([]byte(raw)); err == nil {
				return doc
			}
		}
	}

	doc, ok := s.load(ctx, namespace, s.repo)

	// a fallback after a read error must not outlive the outage
	if s.cache != nil && ok {
		if data, err := json.Marshal(doc); err == nil {
			if err := s.cache.Set(ctx, settingsCacheNamespace, namespace, data, s.cacheTTL); err != nil {
				s.logger.Warn("failed to cache settings", zap.String("namespace", namespace), zap.Error(err))
			}
		}
	}
	return doc
}

// load reports false when it fell back to the defaults because of an error.
func (s *SettingsService) load(ctx context.Context, namespace string, repo repository.Store) (model.Document, bool) {
	defaults := Defaults(namespace)

	raw, err := repo.GetSetting(ctx, namespace)
	if errors.Is(err, repository.ErrSettingNotFound) {
		return defaults, true
	}
	if err != nil {
		s.logger.Error("failed to read settings", zap.String("namespace", namespace), zap.Error(err))
		return defaults, false
	}

	stored, err := decodeDocument([]byte(raw))
	if err != nil {
		s.logger.Error("failed to decode settings", zap.String("namespace", namespace), zap.Error(err))
		return defaults, false
	}
	return mergeShallow(defaults, stored), true
}

// GetAll returns every namespace keyed by name.
func (s *SettingsService) GetAll(ctx context.Context) map[string]model.Document {
	all := make(map[string]model.Document, len(model.SettingsNamespaces))
	for _, ns := range model.SettingsNamespaces {
		all[ns] = s.Get(ctx, ns)
	}
	return all
}

// Update merges partial one level deep: nested objects in partial replace
// the stored ones wholesale.
func (s *SettingsService) Update(ctx context.Context, namespace string, partial model.Document) (model.Document, error) {
	return s.update(ctx, namespace, partial, mergeShallow)
}

// UpdateDeep merges nested objects key by key.
func (s *SettingsService) UpdateDeep(ctx context.Context, namespace string, partial model.Document) (model.Document, error) {
	return s.update(ctx, namespace, partial, mergeDeep)
}

func (s *SettingsService) update(ctx context.Context, namespace string, partial model.Document,
	merge func(base, patch model.Document) model.Document) (model.Document, error) {
	if !model.IsSettingsNamespace(namespace) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, namespace)
	}

	var updated model.Document
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		current := Defaults(namespace)
		raw, err := tx.LockSetting(ctx, namespace)
		switch {
		case err == nil:
			stored, decErr := decodeDocument([]byte(raw))
			if decErr != nil {
				s.logger.Warn("replacing undecodable settings", zap.String("namespace", namespace), zap.Error(decErr))
			} else {
				current = mergeShallow(current, stored)
			}
		case errors.Is(err, repository.ErrSettingNotFound):
		default:
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}

		updated = merge(current, partial)
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		if err := tx.SetSetting(ctx, namespace, string(data)); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to update settings", zap.String("namespace", namespace), zap.Error(err))
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, settingsCacheNamespace, namespace); err != nil {
			s.logger.Warn("failed to invalidate settings cache", zap.String("namespace", namespace), zap.Error(err))
		}
	}
	return updated, nil
}

func mergeShallow(base, patch model.Document) model.Document {
	out := base.Clone()
	for k, v := range patch.Clone() {
		out[k] = v
	}
	return out
}

func mergeDeep(base, patch model.Document) model.Document {
	out := base.Clone()
	for k, v := range patch.Clone() {
		if pm, ok := v.(map[string]interface{}); ok {
			if bm, ok := out[k].(map[string]interface{}); ok {
				out[k] = map[string]interface{}(mergeDeep(bm, pm))
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Wallet returns the typed wallet configuration.
func (s *SettingsService) Wallet(ctx context.Context) model.WalletSettings {
	var out model.WalletSettings
	s.view(ctx, model.SettingsWallet, &out)
	return out
}

func (s *SettingsService) Invoice(ctx context.Context) model.InvoiceSettings {
	var out model.InvoiceSettings
	s.view(ctx, model.SettingsInvoice, &out)
	return out
}

func (s *SettingsService) General(ctx context.Context) model.GeneralSettings {
	var out model.GeneralSettings
	s.view(ctx, model.SettingsGeneral, &out)
	return out
}

func (s *SettingsService) Payment(ctx context.Context) model.PaymentSettings {
	var out model.PaymentSettings
	s.view(ctx, model.SettingsPayment, &out)
	return out
}

// view decodes a namespace into out, retrying with the defaults when the
// stored document does not fit the type.
func (s *SettingsService) view(ctx context.Context, namespace string, out interface{}) {
	if err := decodeInto(s.Get(ctx, namespace), out); err != nil {
		s.logger.Error("settings do not match expected shape", zap.String("namespace", namespace), zap.Error(err))
		_ = decodeInto(Defaults(namespace), out)
	}
}

func decodeInto(doc model.Document, out interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
