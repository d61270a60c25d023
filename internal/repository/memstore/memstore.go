// Package memstore is an in-process implementation of repository.Store.
// It backs the development "memory" storage driver and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository"
)

type state struct {
	settings     map[string]string
	accounts     map[string]model.WalletAccount
	transactions []model.Transaction
	refunds      []model.RefundRequest
	tickets      []model.SupportTicket
	adminLogs    []model.AdminLog
}

func newState() *state {
	return &state{
		settings: make(map[string]string),
		accounts: make(map[string]model.WalletAccount),
	}
}

func (s *state) clone() *state {
	c := &state{
		settings:     make(map[string]string, len(s.settings)),
		accounts:     make(map[string]model.WalletAccount, len(s.accounts)),
		transactions: append([]model.Transaction(nil), s.transactions...),
		refunds:      append([]model.RefundRequest(nil), s.refunds...),
		tickets:      append([]model.SupportTicket(nil), s.tickets...),
		adminLogs:    append([]model.AdminLog(nil), s.adminLogs...),
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	return c
}

// Store serialises every call, and every InTx, behind one mutex.
type Store struct {
	mu     *sync.Mutex
	s      *state
	faults map[string]error
	inTx   bool
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		mu:     &sync.Mutex{},
		s:      newState(),
		faults: make(map[string]error),
	}
}

// FailOn makes the named Store method return err until cleared with a nil err.
func (m *Store) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, method)
		return
	}
	m.faults[method] = err
}

func (m *Store) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Store) fault(method string) error {
	return m.faults[method]
}

// InTx runs fn with the store locked. When fn fails every write it made is undone.
func (m *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	tx := &Store{mu: m.mu, s: m.s, faults: m.faults, inTx: true}
	if err := fn(tx); err != nil {
		*m.s = *snapshot
		return err
	}
	return nil
}

func (m *Store) GetSetting(ctx context.Context, key string) (string, error) {
	defer m.lock()()
	if err := m.fault("GetSetting"); err != nil {
		return "", err
	}
	v, ok := m.s.settings[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return v, nil
}

func (m *Store) LockSetting(ctx context.Context, key string) (string, error) {
	defer m.lock()()
	if err := m.fault("LockSetting"); err != nil {
		return "", err
	}
	v, ok := m.s.settings[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return v, nil
}

func (m *Store) SetSetting(ctx context.Context, key, value string) error {
	defer m.lock()()
	if err := m.fault("SetSetting"); err != nil {
		return err
	}
	m.s.settings[key] = value
	return nil
}

func (m *Store) GetAllSettings(ctx context.Context) (map[string]string, error) {
	defer m.lock()()
	if err := m.fault("GetAllSettings"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.s.settings))
	for k, v := range m.s.settings {
		out[k] = v
	}
	return out, nil
}

func (m *Store) GetAccount(ctx context.Context, userID string) (*model.WalletAccount, error) {
	defer m.lock()()
	if err := m.fault("GetAccount"); err != nil {
		return nil, err
	}
	a, ok := m.s.accounts[userID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &a, nil
}

func (m *Store) LockAccount(ctx context.Context, userID string) (*model.WalletAccount, error) {
	defer m.lock()()
	if err := m.fault("LockAccount"); err != nil {
		return nil, err
	}
	a, ok := m.s.accounts[userID]
	if !ok {
		now := time.Now().UTC()
		a = model.WalletAccount{UserID: userID, CreatedAt: now, UpdatedAt: now}
		m.s.accounts[userID] = a
	}
	return &a, nil
}

func (m *Store) UpdateAccount(ctx context.Context, account *model.WalletAccount) error {
	defer m.lock()()
	if err := m.fault("UpdateAccount"); err != nil {
		return err
	}
	existing, ok := m.s.accounts[account.UserID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	existing.Balance = account.Balance
	existing.Reserved = account.Reserved
	existing.UpdatedAt = account.UpdatedAt
	m.s.accounts[account.UserID] = existing
	return nil
}

func (m *Store) ListAccounts(ctx context.Context) ([]model.WalletAccount, error) {
	defer m.lock()()
	if err := m.fault("ListAccounts"); err != nil {
		return nil, err
	}
	out := make([]model.WalletAccount, 0, len(m.s.accounts))
	for _, a := range m.s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Store) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	defer m.lock()()
	if err := m.fault("CreateTransaction"); err != nil {
		return err
	}
	m.s.transactions = append(m.s.transactions, *tx)
	return nil
}

func (m *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	defer m.lock()()
	if err := m.fault("GetTransaction"); err != nil {
		return nil, err
	}
	for i := range m.s.transactions {
		if m.s.transactions[i].ID == id {
			t := m.s.transactions[i]
			return &t, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (m *Store) UpdateTransaction(ctx context.Context, tx *model.Transaction) error {
	defer m.lock()()
	if err := m.fault("UpdateTransaction"); err != nil {
		return err
	}
	for i := range m.s.transactions {
		t := &m.s.transactions[i]
		if t.ID == tx.ID {
			t.Status = tx.Status
			t.Deletable = tx.Deletable
			t.ProcessedAt = tx.ProcessedAt
			return nil
		}
	}
	return repository.ErrTransactionNotFound
}

func (m *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	defer m.lock()()
	if err := m.fault("DeleteTransaction"); err != nil {
		return err
	}
	for i := range m.s.transactions {
		if m.s.transactions[i].ID == id {
			m.s.transactions = append(m.s.transactions[:i:i], m.s.transactions[i+1:]...)
			return nil
		}
	}
	return repository.ErrTransactionNotFound
}

func (m *Store) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	defer m.lock()()
	if err := m.fault("ListTransactions"); err != nil {
		return nil, err
	}
	out := []model.Transaction{}
	for i := len(m.s.transactions) - 1; i >= 0; i-- {
		t := m.s.transactions[i]
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (m *Store) FindPurchase(ctx context.Context, userID, orderID string) (*model.Transaction, error) {
	defer m.lock()()
	if err := m.fault("FindPurchase"); err != nil {
		return nil, err
	}
	for i := len(m.s.transactions) - 1; i >= 0; i-- {
		t := m.s.transactions[i]
		if t.UserID == userID && t.Type == model.TransactionTypePurchase &&
			t.Status == model.TransactionStatusCompleted && t.OrderID != nil && *t.OrderID == orderID {
			return &t, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (m *Store) CreateRefund(ctx context.Context, refund *model.RefundRequest) error {
	defer m.lock()()
	if err := m.fault("CreateRefund"); err != nil {
		return err
	}
	m.s.refunds = append(m.s.refunds, *refund)
	return nil
}

func (m *Store) GetRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	defer m.lock()()
	if err := m.fault("GetRefund"); err != nil {
		return nil, err
	}
	return m.findRefund(id)
}

func (m *Store) LockRefund(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	defer m.lock()()
	if err := m.fault("LockRefund"); err != nil {
		return nil, err
	}
	return m.findRefund(id)
}

func (m *Store) findRefund(id uuid.UUID) (*model.RefundRequest, error) {
	for i := range m.s.refunds {
		if m.s.refunds[i].ID == id {
			r := m.s.refunds[i]
			return &r, nil
		}
	}
	return nil, repository.ErrRefundNotFound
}

func (m *Store) UpdateRefund(ctx context.Context, refund *model.RefundRequest) error {
	defer m.lock()()
	if err := m.fault("UpdateRefund"); err != nil {
		return err
	}
	for i := range m.s.refunds {
		r := &m.s.refunds[i]
		if r.ID == refund.ID {
			r.Status = refund.Status
			r.ProcessedDate = refund.ProcessedDate
			r.ProcessedBy = refund.ProcessedBy
			r.AdminNotes = refund.AdminNotes
			return nil
		}
	}
	return repository.ErrRefundNotFound
}

func (m *Store) DeleteRefund(ctx context.Context, id uuid.UUID) error {
	defer m.lock()()
	if err := m.fault("DeleteRefund"); err != nil {
		return err
	}
	for i := range m.s.refunds {
		if m.s.refunds[i].ID == id {
			m.s.refunds = append(m.s.refunds[:i:i], m.s.refunds[i+1:]...)
			return nil
		}
	}
	return repository.ErrRefundNotFound
}

func (m *Store) ListRefunds(ctx context.Context, filter model.RefundFilter) ([]model.RefundRequest, error) {
	defer m.lock()()
	if err := m.fault("ListRefunds"); err != nil {
		return nil, err
	}
	out := []model.RefundRequest{}
	for i := len(m.s.refunds) - 1; i >= 0; i-- {
		r := m.s.refunds[i]
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.OrderID != "" && r.OrderID != filter.OrderID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RequestDate.After(out[j].RequestDate) })
	return out, nil
}

func (m *Store) HasPendingRefund(ctx context.Context, userID, orderID string) (bool, error) {
	defer m.lock()()
	if err := m.fault("HasPendingRefund"); err != nil {
		return false, err
	}
	for _, r := range m.s.refunds {
		if r.UserID == userID && r.OrderID == orderID && r.IsPending() {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) CreateTicket(ctx context.Context, ticket *model.SupportTicket) error {
	defer m.lock()()
	if err := m.fault("CreateTicket"); err != nil {
		return err
	}
	m.s.tickets = append(m.s.tickets, *ticket)
	return nil
}

func (m *Store) ListTickets(ctx context.Context, userID string) ([]model.SupportTicket, error) {
	defer m.lock()()
	if err := m.fault("ListTickets"); err != nil {
		return nil, err
	}
	out := []model.SupportTicket{}
	for i := len(m.s.tickets) - 1; i >= 0; i-- {
		t := m.s.tickets[i]
		if userID != "" && t.UserID != userID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) CreateAdminLog(ctx context.Context, log *model.AdminLog) error {
	defer m.lock()()
	if err := m.fault("CreateAdminLog"); err != nil {
		return err
	}
	m.s.adminLogs = append(m.s.adminLogs, *log)
	return nil
}

func (m *Store) GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error) {
	defer m.lock()()
	if err := m.fault("GetAdminLogs"); err != nil {
		return nil, err
	}
	out := []model.AdminLog{}
	for i := len(m.s.adminLogs) - 1; i >= 0; i-- {
		out = append(out, m.s.adminLogs[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
