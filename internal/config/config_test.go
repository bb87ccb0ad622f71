package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "9090", cfg.GRPC.Port)
	assert.Equal(t, 12, cfg.Subscription.TotalCount)
	assert.Equal(t, 14*24*time.Hour, cfg.Subscription.RefundWindow)
	assert.Equal(t, "optimum", cfg.Subscription.RefundSpeed)
	assert.Equal(t, "inactive", cfg.Subscription.TerminalStatus)
	assert.Equal(t, "subscription-events", cfg.Kafka.Topic)
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	t.Setenv("RAZORPAY_PLAN_ID", "plan_monthly")
	t.Setenv("AUTH_JWT_SECRET", "jwt")
	t.Setenv("DATABASE_DSN", "postgres://localhost/subs")
	t.Setenv("DATABASE_MAX_CONNS", "4")
	t.Setenv("SUBSCRIPTION_TERMINAL_STATUS", "cancelled")
	t.Setenv("SUBSCRIPTION_REFUND_WINDOW", "48h")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "rzp_test_key", cfg.Razorpay.KeyID)
	assert.Equal(t, "secret", cfg.Razorpay.KeySecret)
	assert.Equal(t, "secret", cfg.Razorpay.SigningSecret, "signing secret falls back to key secret")
	assert.Equal(t, "plan_monthly", cfg.Razorpay.PlanID)
	assert.Equal(t, "jwt", cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres://localhost/subs", cfg.Database.DSN)
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.Equal(t, "cancelled", cfg.Subscription.TerminalStatus)
	assert.Equal(t, 48*time.Hour, cfg.Subscription.RefundWindow)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigSigningSecretFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	t.Setenv("RAZORPAY_SIGNING_SECRET", "signing")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "signing", cfg.Razorpay.SigningSecret)
}

func TestLoadConfigLegacyEnvNames(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RAZORPAY_KEYID", "rzp_legacy")
	t.Setenv("JWT_SECRET", "jwt_legacy")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "rzp_legacy", cfg.Razorpay.KeyID)
	assert.Equal(t, "jwt_legacy", cfg.Auth.JWTSecret)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RAZORPAY_PLAN_ID=plan_from_dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RAZORPAY_PLAN_ID") })

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "plan_from_dotenv", cfg.Razorpay.PlanID)
}

func TestLoadConfigMissingDotEnvIsIgnored(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := LoadConfig("does-not-exist.env")
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "razorpay.keyId")
	assert.Contains(t, err.Error(), "razorpay.planId")
	assert.Contains(t, err.Error(), "auth.jwtSecret")

	cfg.Razorpay.KeyID = "k"
	cfg.Razorpay.KeySecret = "s"
	cfg.Razorpay.PlanID = "p"
	cfg.Auth.JWTSecret = "j"
	cfg.Subscription.TerminalStatus = "halted"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminalStatus")
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
