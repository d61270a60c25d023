package repository

import (
	"context"
)

// Settings rows hold one JSON document per namespace.

func (r *Repository) GetSetting(ctx context.Context, namespace string) (string, error) {
	return r.readSetting(ctx, "SELECT value FROM settings WHERE key = $1", namespace)
}

// LockSetting reads a document and holds its row until the surrounding transaction ends.
func (r *Repository) LockSetting(ctx context.Context, namespace string) (string, error) {
	return r.readSetting(ctx, "SELECT value FROM settings WHERE key = $1 FOR UPDATE", namespace)
}

func (r *Repository) readSetting(ctx context.Context, query, namespace string) (string, error) {
	var document string
	if err := r.q.GetContext(ctx, &document, query, namespace); err != nil {
		return "", notFound(err, ErrSettingNotFound)
	}
	return document, nil
}

func (r *Repository) SetSetting(ctx context.Context, namespace, document string) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, namespace, document)
	return err
}

func (r *Repository) GetAllSettings(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Namespace string `db:"key"`
		Document  string `db:"value"`
	}
	if err := r.q.SelectContext(ctx, &rows, "SELECT key, value FROM settings ORDER BY key"); err != nil {
		return nil, err
	}

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Namespace] = row.Document
	}
	return settings, nil
}
