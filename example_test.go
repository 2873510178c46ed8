package goFactor_test

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	goFactor "github.com/MrEthical07/goFactor"
	"github.com/MrEthical07/goFactor/store/redisstore"
)

// ExampleNew builds an engine over a Redis store with failure limits on.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	store := redisstore.New(rdb, "gf")

	cfg := goFactor.DefaultConfig()
	cfg.Limits.Enabled = true

	engine, err := goFactor.New().
		WithConfig(cfg).
		WithIdentityStore(store).
		WithServiceRegistry(store).
		WithRedis(rdb).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_IssueToken admits a client, checks its Basic credential, and
// requests a token for a relying service.
func ExampleEngine_IssueToken() {
	var engine *goFactor.Engine
	ctx := context.Background()

	id, err := engine.VerifyAdmission(ctx, "admission-key")
	if err != nil {
		return
	}
	credential := goFactor.EncodeBasicCredential("alice", goFactor.PasswordDigest("secret"))
	if err := engine.VerifyBasic(ctx, id, credential); err != nil {
		return
	}
	token, err := engine.IssueToken(ctx, id, "billing")
	_, _ = token, err
}

func ExampleClassify() {
	err := fmt.Errorf("lookup: %w", goFactor.ErrIdentityNotFound)
	fmt.Println(goFactor.Classify(err))
	fmt.Println(goFactor.Classify(nil))
	// Output:
	// NotFound
	// OK
}
