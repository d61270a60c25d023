package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webagency/backend/internal/auth"
	"github.com/webagency/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminLogin(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.admin.Login(ctx, "admin@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "no credentials configured")

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	issuer := auth.NewIssuer("test-secret", time.Hour)
	ts.admin.SetCredentials("Admin@Example.com", string(hash), issuer)

	_, err = ts.admin.Login(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = ts.admin.Login(ctx, "other@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := ts.admin.Login(ctx, " ADMIN@example.com ", "secret")
	require.NoError(t, err)
	principal, err := issuer.Parse("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", principal.UserID)
	assert.True(t, principal.IsAdmin())
}

func TestAdminLogs(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	user := "u1"
	for i := 0; i < 3; i++ {
		require.NoError(t, ts.admin.LogAction(ctx, nil, "admin", model.AdminActionUpdateSettings, &user,
			map[string]interface{}{"section": "general", "n": i}))
	}

	logs, err := ts.admin.GetLogs(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.JSONEq(t, `{"section":"general","n":2}`, string(logs[0].Details))
	require.NotNil(t, logs[0].TargetUserID)
	assert.Equal(t, "u1", *logs[0].TargetUserID)

	rest, err := ts.admin.GetLogs(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
