package common

import "fmt"

var (
	// Queue keys
	queueList string = "metacatalog:queue:{%s}"      // name
	queueHash string = "metacatalog:queue:{%s}:hash" // name
	queueLock string = "metacatalog:queue:{%s}:lock" // name

	// Maintenance keys
	maintenanceLock string = "metacatalog:maintenance:%s:lock" // operation
)

var Keys = &redisKeys{}

type redisKeys struct{}

// Queue keys
func (rk *redisKeys) QueueList(name string) string {
	return fmt.Sprintf(queueList, name)
}

func (rk *redisKeys) QueueHash(name string) string {
	return fmt.Sprintf(queueHash, name)
}

func (rk *redisKeys) QueueLock(name string) string {
	return fmt.Sprintf(queueLock, name)
}

// Maintenance keys
func (rk *redisKeys) MaintenanceLock(operation string) string {
	return fmt.Sprintf(maintenanceLock, operation)
}
