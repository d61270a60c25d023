package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webagency/backend/internal/cache"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository/memstore"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSettingsGetWalletDefaults(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	doc := ts.settings.Get(ctx, model.SettingsWallet)
	assert.Equal(t, Defaults(model.SettingsWallet), doc)

	w := ts.settings.Wallet(ctx)
	assert.True(t, w.ServiceFee.Equal(dec("5")))
	assert.Equal(t, "EUR", w.Currency)
	assert.True(t, w.WithdrawalSettings.MinWithdrawal.Equal(dec("10")))
	assert.True(t, w.WithdrawalSettings.MaxWithdrawal.Equal(dec("10000")))
	assert.Equal(t, "3-5 business days", w.WithdrawalSettings.ProcessingTime)
	assert.True(t, w.DepositSettings.BankTransferRequiresApproval)
}

func TestSettingsDefaultsForAllNamespaces(t *testing.T) {
	for _, ns := range model.SettingsNamespaces {
		assert.NotEmpty(t, Defaults(ns), ns)
	}
	assert.Empty(t, Defaults("blog"))
}

func TestSettingsUpdateChangesOnlyGivenField(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	before := ts.settings.Get(ctx, model.SettingsGeneral)
	_, err := ts.settings.Update(ctx, model.SettingsGeneral, model.Document{"siteName": "X"})
	require.NoError(t, err)
	after := ts.settings.Get(ctx, model.SettingsGeneral)

	assert.Equal(t, "X", after["siteName"])
	delete(before, "siteName")
	delete(after, "siteName")
	assert.Equal(t, before, after)
}

func TestSettingsUpdateReplacesNestedObjects(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.settings.Update(ctx, model.SettingsPayment, model.Document{
		"paypal": map[string]interface{}{"enabled": true},
	})
	require.NoError(t, err)

	paypal := ts.settings.Get(ctx, model.SettingsPayment)["paypal"].(map[string]interface{})
	assert.Equal(t, true, paypal["enabled"])
	_, hasTestMode := paypal["testMode"]
	assert.False(t, hasTestMode)
}

func TestSettingsUpdateDeepMergesNestedObjects(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.settings.UpdateDeep(ctx, model.SettingsWallet, model.Document{
		"withdrawalSettings": map[string]interface{}{"minWithdrawal": 20},
	})
	require.NoError(t, err)

	w := ts.settings.Wallet(ctx)
	assert.True(t, w.WithdrawalSettings.MinWithdrawal.Equal(dec("20")))
	assert.True(t, w.WithdrawalSettings.MaxWithdrawal.Equal(dec("10000")))
	assert.Equal(t, "3-5 business days", w.WithdrawalSettings.ProcessingTime)
}

func TestSettingsUnknownNamespace(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	assert.Empty(t, ts.settings.Get(ctx, "blog"))
	_, err := ts.settings.Update(ctx, "blog", model.Document{"a": 1})
	assert.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestSettingsGetSwallowsStorageErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := memstore.New()
	settings := NewSettingsService(store, zap.New(core))
	ctx := context.Background()

	store.FailOn("GetSetting", errors.New("connection reset"))
	doc := settings.Get(ctx, model.SettingsInvoice)
	assert.Equal(t, Defaults(model.SettingsInvoice), doc)
	assert.Equal(t, 1, logs.FilterMessage("failed to read settings").Len())
}

func TestSettingsGetFallsBackOnCorruptDocument(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	require.NoError(t, ts.store.SetSetting(ctx, model.SettingsInvoice, "{not json"))
	doc := ts.settings.Get(ctx, model.SettingsInvoice)
	assert.Equal(t, Defaults(model.SettingsInvoice), doc)

	// an update replaces the broken document
	_, err := ts.settings.Update(ctx, model.SettingsInvoice, model.Document{"invoicePrefix": "RE"})
	require.NoError(t, err)
	assert.Equal(t, "RE", ts.settings.Invoice(ctx).InvoicePrefix)
}

func TestSettingsUpdateStorageFailure(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	ts.store.FailOn("SetSetting", errors.New("disk full"))
	_, err := ts.settings.Update(ctx, model.SettingsGeneral, model.Document{"siteName": "X"})
	assert.ErrorIs(t, err, ErrStorageFailure)

	ts.store.FailOn("SetSetting", nil)
	assert.Equal(t, "My Site", ts.settings.Get(ctx, model.SettingsGeneral)["siteName"])
}

func TestSettingsStoredDocumentMergedOverDefaults(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	require.NoError(t, ts.store.SetSetting(ctx, model.SettingsWallet, `{"serviceFee": 2.5}`))
	w := ts.settings.Wallet(ctx)
	assert.True(t, w.ServiceFee.Equal(dec("2.5")))
	assert.Equal(t, "EUR", w.Currency)
}

type fakeCache struct {
	values  map[string]string
	deletes int
}

func (c *fakeCache) Get(ctx context.Context, namespace, key string) (string, error) {
	v, ok := c.values[namespace+":"+key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		c.values[namespace+":"+key] = string(v)
	case string:
		c.values[namespace+":"+key] = v
	default:
		data, _ := json.Marshal(v)
		c.values[namespace+":"+key] = string(data)
	}
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, namespace, key string) error {
	c.deletes++
	delete(c.values, namespace+":"+key)
	return nil
}

func TestSettingsCacheInvalidatedOnUpdate(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	c := &fakeCache{values: map[string]string{}}
	ts.settings.SetCache(c, time.Minute)

	ts.settings.Get(ctx, model.SettingsGeneral)
	assert.Contains(t, c.values, "settings:general")

	_, err := ts.settings.Update(ctx, model.SettingsGeneral, model.Document{"siteName": "Cached"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.deletes)
	assert.Equal(t, "Cached", ts.settings.Get(ctx, model.SettingsGeneral)["siteName"])
}

func TestSettingsCacheSkipsFallbackAfterReadError(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	c := &fakeCache{values: map[string]string{}}
	ts.settings.SetCache(c, time.Minute)
	require.NoError(t, ts.store.SetSetting(ctx, model.SettingsWallet, `{"serviceFee": 2.5}`))

	ts.store.FailOn("GetSetting", errors.New("connection reset"))
	assert.True(t, ts.settings.Wallet(ctx).ServiceFee.Equal(dec("5")))
	assert.NotContains(t, c.values, "settings:wallet")
	ts.store.FailOn("GetSetting", nil)

	assert.True(t, ts.settings.Wallet(ctx).ServiceFee.Equal(dec("2.5")))
	assert.Contains(t, c.values, "settings:wallet")
}
