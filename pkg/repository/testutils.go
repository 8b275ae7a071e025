package repository

import (
	"github.com/alicebob/miniredis/v2"
	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// NewRedisClientForTest creates a Redis client backed by miniredis for testing
func NewRedisClientForTest() (*common.RedisClient, error) {
	s, err := miniredis.Run()
	if err != nil {
		return nil, err
	}

	rdb, err := common.NewRedisClient(types.RedisConfig{
		Addrs: []string{s.Addr()},
		Mode:  types.RedisModeSingle,
	})
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

// NewRedisJobQueueForTest creates a JobQueue backed by miniredis
func NewRedisJobQueueForTest(name string) (*RedisJobQueue, error) {
	rdb, err := NewRedisClientForTest()
	if err != nil {
		return nil, err
	}
	return NewRedisJobQueue(rdb, name, 0), nil
}
