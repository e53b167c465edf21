package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRule(id uint64, path string, priority int) *model.RuleDefinition {
	status := 201
	method := "POST"
	delay := model.Delay(50 * time.Millisecond)
	return &model.RuleDefinition{
		ID:       id,
		Remark:   "rule " + strconv.FormatUint(id, 10),
		Priority: priority,
		Req: model.RequestPattern{
			Path:    path,
			Method:  &method,
			Headers: map[string]string{"x-token": "abc"},
			Body:    []byte(`{"name":"alice"}`),
		},
		Resp: model.ResponseSpec{
			Status:  &status,
			Headers: [][2]string{{"content-type", "application/json"}},
			Body:    []byte(`{"id":"{{path.id}}"}`),
			Delay:   &delay,
		},
	}
}

// runStoreSuite 所有 RuleStoreIface 实现共用的用例
func runStoreSuite(t *testing.T, store RuleStoreIface) {
	ctx := context.Background()

	_, err := store.GetRule(ctx, 1)
	assert.ErrorIs(t, err, model.ErrRuleNotFound)

	require.NoError(t, store.SaveRule(ctx, newTestRule(1, "/users/:id", 5)))
	require.NoError(t, store.SaveRule(ctx, newTestRule(2, "/users/{id}", 1)))
	require.NoError(t, store.SaveRule(ctx, newTestRule(3, "/orders", 1)))

	got, err := store.GetRule(ctx, 1)
	require.NoError(t, err)
	want := newTestRule(1, "/users/:id", 5)
	assert.Equal(t, want.Req, got.Req)
	assert.Equal(t, want.Resp, got.Resp)
	assert.Equal(t, "/users/*", got.MatchIndex)

	all, err := store.ListRules(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 1}, ruleIDs(all))

	byPath, err := store.ListRules(ctx, model.NewPathFilter("/users/:uid"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 1}, ruleIDs(byPath))

	// upsert: 同 id 覆盖, 路径变化后旧索引不再包含它
	moved := newTestRule(1, "/orders", 0)
	require.NoError(t, store.SaveRule(ctx, moved))
	byPath, err = store.ListRules(ctx, model.NewPathFilter("/users/:uid"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ruleIDs(byPath))
	orders, err := store.ListRules(ctx, model.NewPathFilter("/orders"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ruleIDs(orders))

	batch, err := store.BatchGetRules(ctx, []uint64{3, 2, 99})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ruleIDs(batch))

	require.NoError(t, store.DeleteRule(ctx, 2))
	require.NoError(t, store.DeleteRule(ctx, 2))
	_, err = store.GetRule(ctx, 2)
	assert.ErrorIs(t, err, model.ErrRuleNotFound)

	all, err = store.ListRules(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ruleIDs(all))
}

func ruleIDs(rules []*model.RuleDefinition) []uint64 {
	ids := make([]uint64, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestGormRuleStorageSQLite(t *testing.T) {
	c := &configs.StorageConfig{
		Driver:     configs.DriverSQLite,
		SqlitePath: filepath.Join(t.TempDir(), "data", "rules.db"),
		DatabaseOptionConfig: configs.DatabaseOptionConfig{
			LogLevel: "silent",
		},
	}
	store, cleanup, err := NewRuleStore(c)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &GormRuleStorage{}, store)
	runStoreSuite(t, store)
}

func TestRedisRuleStorage(t *testing.T) {
	addr := os.Getenv("STUB_TEST_REDIS_PORT")
	if addr == "" {
		t.Skip("STUB_TEST_REDIS_PORT not set")
	}
	port, err := strconv.Atoi(addr)
	require.NoError(t, err)

	c := &configs.StorageConfig{
		Driver: configs.DriverRedis,
		RedisConfig: configs.RedisConfig{
			Host:      "127.0.0.1",
			Port:      port,
			KeyPrefix: "stub_rule_test:" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":",
		},
	}
	store, cleanup, err := NewRuleStore(c)
	require.NoError(t, err)
	defer cleanup()

	runStoreSuite(t, store)
}

func TestNopRuleStorage(t *testing.T) {
	store, cleanup, err := NewRuleStore(&configs.StorageConfig{Driver: configs.DriverNone})
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	assert.NoError(t, store.SaveRule(ctx, newTestRule(1, "/a", 0)))
	_, err = store.GetRule(ctx, 1)
	assert.ErrorIs(t, err, model.ErrRuleNotFound)
	rules, err := store.ListRules(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, rules)
}

func TestNewRuleStoreUnknownDriver(t *testing.T) {
	_, _, err := NewRuleStore(&configs.StorageConfig{Driver: "mongo"})
	assert.Error(t, err)
}
