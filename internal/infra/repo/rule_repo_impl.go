package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/storage"
	"go_stub_server/utils"

	"github.com/avast/retry-go/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ruleRepoImpl 实现了 RuleRepositoryIface (singleflight 并发控制, retry-go, ants pool)
type ruleRepoImpl struct {
	registry *RuleRegistry
	store    storage.RuleStoreIface
	config   *configs.RuleRepoConfig
	taskPool *ants.Pool
	sfGroup  singleflight.Group

	// 同一 id 的持久化任务串行执行
	idLocks sync.Map
	pending sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// 确保 ruleRepoImpl 实现了 RuleRepositoryIface 接口 (编译时检查)
var _ RuleRepositoryIface = (*ruleRepoImpl)(nil)

func NewRuleRepoImpl(registry *RuleRegistry, store storage.RuleStoreIface, config *configs.RuleRepoConfig) (RuleRepositoryIface, func(), error) {
	poolSize := config.PersistPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	taskPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	repo := &ruleRepoImpl{
		registry: registry,
		store:    store,
		config:   config,
		taskPool: taskPool,
		ctx:      ctx,
		cancel:   cancel,
	}
	cleanup := func() {
		if err := repo.Close(); err != nil {
			utils.GetLogger().WithError(err).Warn("failed to close rule repo")
		}
	}
	return repo, cleanup, nil
}

// SaveRule 先写注册表, 再异步持久化
func (r *ruleRepoImpl) SaveRule(ctx context.Context, rule *model.RuleDefinition) error {
	if rule == nil {
		return fmt.Errorf("rule is nil")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := r.registry.Add(rule, rule.Priority); err != nil {
		return fmt.Errorf("failed to register rule %d: %w", rule.ID, err)
	}

	utils.GetLogger().WithFields(logrus.Fields{
		"rule_id":  rule.ID,
		"path":     rule.Req.Path,
		"priority": rule.Priority,
		"relay":    rule.IsRelay(),
	}).Info("rule saved")

	r.submitSync(rule.ID)
	return nil
}

// DeleteRule 删除规则, 树上残留的 id 查询时跳过
func (r *ruleRepoImpl) DeleteRule(ctx context.Context, id uint64) error {
	if !r.registry.Delete(&model.RuleDefinition{ID: id}) {
		return fmt.Errorf("rule %d: %w", id, model.ErrRuleNotFound)
	}
	utils.GetLogger().WithField("rule_id", id).Info("rule deleted")

	r.submitSync(id)
	return nil
}

func (r *ruleRepoImpl) FindByID(ctx context.Context, id uint64) (*model.RuleDefinition, error) {
	rule, ok := r.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("rule %d: %w", id, model.ErrRuleNotFound)
	}
	return rule, nil
}

func (r *ruleRepoImpl) ListRules(ctx context.Context, filter *model.RuleFilter) ([]*model.RuleDefinition, error) {
	all := r.registry.ListAll()
	rules := make([]*model.RuleDefinition, 0, len(all))
	for _, rule := range all {
		if filter.Match(rule) {
			rules = append(rules, rule)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

func (r *ruleRepoImpl) Candidates(path string) (*Lookup, bool) {
	return r.registry.Candidates(path)
}

// Load 并发调用时只读一次存储
func (r *ruleRepoImpl) Load(ctx context.Context) (int, error) {
	data, err, _ := r.sfGroup.Do("load_rules", func() (interface{}, error) {
		var rules []*model.RuleDefinition
		err := retry.Do(
			func() error {
				var err error
				rules, err = r.store.ListRules(ctx, nil)
				return err
			},
			retry.Attempts(attemptsOf(r.config.SaveRuleRetryCount)),
			retry.Delay(r.config.SaveRuleRetryDelay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to list rules from store: %w", err)
		}

		log := utils.GetLogger()
		loaded := 0
		for _, rule := range rules {
			if err := rule.Validate(); err != nil {
				log.WithError(err).WithField("rule_id", rule.ID).Warn("skip invalid stored rule")
				continue
			}
			if err := r.registry.Add(rule, rule.Priority); err != nil {
				log.WithError(err).WithField("rule_id", rule.ID).Warn("skip stored rule")
				continue
			}
			loaded++
		}
		log.WithFields(logrus.Fields{
			"stored": len(rules),
			"loaded": loaded,
		}).Info("rules restored from store")
		return loaded, nil
	})
	if err != nil {
		return 0, err
	}
	return data.(int), nil
}

func (r *ruleRepoImpl) Flush() {
	r.pending.Wait()
}

// Close 等待持久化任务结束后释放协程池和存储
func (r *ruleRepoImpl) Close() error {
	r.Flush()
	r.cancel()
	if err := r.taskPool.ReleaseTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("failed to release task pool: %w", err)
	}
	return nil
}

// submitSync 把 id 在注册表中的最新状态同步到存储
func (r *ruleRepoImpl) submitSync(id uint64) {
	r.pending.Add(1)
	if err := r.taskPool.Submit(func() {
		defer r.pending.Done()
		r.syncRule(id)
	}); err != nil {
		r.pending.Done()
		utils.GetLogger().WithError(err).WithField("rule_id", id).Error("failed to submit persist task")
	}
}

func (r *ruleRepoImpl) syncRule(id uint64) {
	l, _ := r.idLocks.LoadOrStore(id, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	// 执行时再读一次, 排队期间的修改以最后一次为准
	rule, exists := r.registry.Get(id)

	var (
		op       = "save"
		attempts = r.config.SaveRuleRetryCount
		delay    = r.config.SaveRuleRetryDelay
	)
	if !exists {
		op = "delete"
		attempts = r.config.DeleteRuleRetryCount
		delay = r.config.DeleteRuleRetryDelay
	}

	err := retry.Do(
		func() error {
			if exists {
				return r.store.SaveRule(r.ctx, rule)
			}
			return r.store.DeleteRule(r.ctx, id)
		},
		retry.Attempts(attemptsOf(attempts)),
		retry.Delay(delay),
		retry.Context(r.ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		utils.GetLogger().WithFields(logrus.Fields{
			"rule_id": id,
			"op":      op,
			"error":   err,
		}).Error("failed to persist rule")
	}
}

// attemptsOf retry-go 的 Attempts(0) 表示无限重试, 这里至少一次
func attemptsOf(n int) uint {
	if n <= 0 {
		return 1
	}
	return uint(n)
}
