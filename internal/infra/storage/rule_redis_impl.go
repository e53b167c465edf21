package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const defaultKeyPrefix = "stub_rule:" // Redis Key 前缀

// redisRuleStorageImpl 规则存储在 redis 中
//
//	<prefix>rule:<id>          规则 JSON
//	<prefix>all                ZSET, member 为 id, score 为 priority
//	<prefix>index:<matchIndex> ZSET, 同一路径模式下的规则
type redisRuleStorageImpl struct {
	redisClient *redis.Client
	prefix      string
}

var _ RuleStoreIface = (*redisRuleStorageImpl)(nil)

// NewRedisClient 创建客户端并 ping 一次
func NewRedisClient(ctx context.Context, c *configs.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.Database,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolTimeout:  c.PoolTimeout,
		IdleTimeout:  c.IdleTimeout,
	})

	// 测试连接是否成功
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", c.Addr(), err)
	}

	utils.GetLogger().WithField("addr", c.Addr()).Info("Successfully connected to Redis")
	return client, nil
}

func NewRedisRuleStorage(redisClient *redis.Client, prefix string) RuleStoreIface {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &redisRuleStorageImpl{
		redisClient: redisClient,
		prefix:      prefix,
	}
}

func (r *redisRuleStorageImpl) ruleKey(id uint64) string {
	return r.prefix + "rule:" + strconv.FormatUint(id, 10)
}

func (r *redisRuleStorageImpl) allKey() string {
	return r.prefix + "all"
}

func (r *redisRuleStorageImpl) indexKey(matchIndex string) string {
	return r.prefix + "index:" + matchIndex
}

// SaveRule 写规则并更新两个索引, 路径变化时从旧索引中移除
func (r *redisRuleStorageImpl) SaveRule(ctx context.Context, rule *model.RuleDefinition) error {
	old, err := r.GetRule(ctx, rule.ID)
	if err != nil && !errors.Is(err, model.ErrRuleNotFound) {
		return err
	}

	rule.MatchIndex = model.BuildMatchIndexKeyFromRule(rule)
	ruleJSON, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule to JSON: %w", err)
	}

	member := strconv.FormatUint(rule.ID, 10)
	z := &redis.Z{Score: float64(rule.Priority), Member: member}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.ruleKey(rule.ID), ruleJSON, 0)
		pipe.ZAdd(ctx, r.allKey(), z)
		if old != nil {
			if oldIndex := model.BuildMatchIndexKeyFromRule(old); oldIndex != rule.MatchIndex {
				pipe.ZRem(ctx, r.indexKey(oldIndex), member)
			}
		}
		pipe.ZAdd(ctx, r.indexKey(rule.MatchIndex), z)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save rule %d to redis: %w", rule.ID, err)
	}
	return nil
}

func (r *redisRuleStorageImpl) GetRule(ctx context.Context, id uint64) (*model.RuleDefinition, error) {
	ruleJSON, err := r.redisClient.Get(ctx, r.ruleKey(id)).Result()
	if err == redis.Nil { // Redis 中 Key 不存在
		return nil, fmt.Errorf("rule %d: %w", id, model.ErrRuleNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get rule from redis: %w", err)
	}

	rule := &model.RuleDefinition{}
	if err := json.Unmarshal([]byte(ruleJSON), rule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule from JSON: %w", err)
	}
	rule.MatchIndex = model.BuildMatchIndexKeyFromRule(rule)
	return rule, nil
}

func (r *redisRuleStorageImpl) DeleteRule(ctx context.Context, id uint64) error {
	old, err := r.GetRule(ctx, id)
	if errors.Is(err, model.ErrRuleNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	member := strconv.FormatUint(id, 10)
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.ruleKey(id))
		pipe.ZRem(ctx, r.allKey(), member)
		pipe.ZRem(ctx, r.indexKey(old.MatchIndex), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete rule %d from redis: %w", id, err)
	}
	return nil
}

func (r *redisRuleStorageImpl) BatchGetRules(ctx context.Context, ids []uint64) ([]*model.RuleDefinition, error) {
	rules := make([]*model.RuleDefinition, 0, len(ids))
	if len(ids) == 0 {
		return rules, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.ruleKey(id)
	}

	values, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to batch get rules from redis: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// 索引里还在, 规则已经没了
			continue
		}
		rule := &model.RuleDefinition{}
		if err := json.Unmarshal([]byte(s), rule); err != nil {
			utils.GetLogger().WithFields(logrus.Fields{
				"key":   keys[i],
				"error": err,
			}).Warn("skip broken rule in redis")
			continue
		}
		rule.MatchIndex = model.BuildMatchIndexKeyFromRule(rule)
		rules = append(rules, rule)
	}
	sortRules(rules)
	return rules, nil
}

// ListRules 有 MatchIndex 时读路径索引, 否则读全局索引
func (r *redisRuleStorageImpl) ListRules(ctx context.Context, filter *model.RuleFilter) ([]*model.RuleDefinition, error) {
	key := r.allKey()
	if filter != nil && filter.MatchIndex != nil {
		key = r.indexKey(*filter.MatchIndex)
	}

	members, err := r.redisClient.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get index members: %w", err)
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.BatchGetRules(ctx, ids)
}

func (r *redisRuleStorageImpl) Close() error {
	return r.redisClient.Close()
}

func sortRules(rules []*model.RuleDefinition) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
