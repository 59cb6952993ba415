package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/idmap-backend/internal/clients/redis"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "scheme", "apikey", "claims"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-mode"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("db-driver"))
}

func sqliteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "idmap.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("METRICS_ENABLED", "")
	t.Setenv("OTEL_ENABLED", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--log-mode", "test"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemeAndAPIKeyCommands(t *testing.T) {
	sqliteEnv(t)

	out, err := run(t, "scheme", "create", "uk-area_id")
	require.NoError(t, err)
	assert.Equal(t, "1\tuk-area_id\n", out)

	_, err = run(t, "scheme", "create", "12345")
	assert.Error(t, err)

	out, err = run(t, "apikey", "create", "--key", "0123456789abcdef-cli", "--notes", "ops")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef-cli\n", out)

	_, err = run(t, "apikey", "create", "--key", "0123456789abcdef-cli")
	assert.Error(t, err)

	out, err = run(t, "apikey", "create")
	require.NoError(t, err)
	assert.Len(t, out, 65)
}

func TestMigrateSeedsMissingSchemes(t *testing.T) {
	sqliteEnv(t)

	seed := filepath.Join(t.TempDir(), "schemes.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("schemes:\n  - name: uk-area_id\n  - name: wikidata-district-item\n"), 0o644))

	_, err := run(t, "scheme", "create", "uk-area_id")
	require.NoError(t, err)

	out, err := run(t, "migrate", "--seed", seed)
	require.NoError(t, err)
	assert.Equal(t, "created scheme 2 wikidata-district-item\nmigrated, 1 scheme(s) seeded\n", out)

	out, err = run(t, "scheme", "list")
	require.NoError(t, err)
	assert.Equal(t, "1\tuk-area_id\n2\twikidata-district-item\n", out)
}

func TestClaimsWatchNeedsRedis(t *testing.T) {
	sqliteEnv(t)
	_, err := run(t, "claims", "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestClaimsWatchPrintsEventsAndReportsMalformed(t *testing.T) {
	sqliteEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_CLAIM_CHANNEL", "")

	cmd := NewRootCommand()
	var out, errOut lockedBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--log-mode", "test", "claims", "watch"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	ch := redis.DefaultClaimChannel
	require.Eventually(t, func() bool { return mr.PubSubNumSub(ch)[ch] == 1 }, 5*time.Second, 10*time.Millisecond)

	mr.Publish(ch, "nope")
	mr.Publish(ch, `{"claim_id":9,"identifier_a":{"scheme_id":1,"value":"gss:S17000017"},"identifier_b":{"scheme_id":2,"value":"Q1529479"},"created":"2018-01-12T19:20:00Z"}`)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"claim_id":9`)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.Contains(t, errOut.String(), "skipped: malformed claim event")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("claims watch did not stop")
	}
}
