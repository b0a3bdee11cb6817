// Package dummydb is an in-memory implementation of the persistence ports, used by tests
// and by the API when database.engine is "memory".
package dummydb

import (
	"sync"

	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

type (
	DB struct {
		user     *userTable
		task     *taskTable
		delivery *deliveryTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	taskTable struct {
		sync.RWMutex
		table map[string]*task.Task
	}

	deliveryKey struct {
		taskID      string
		recipientID string
	}

	deliveryTable struct {
		sync.RWMutex
		table  map[string]*task.Delivery
		unique map[deliveryKey]string // (task_id, recipient_id) -> delivery id
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		task: &taskTable{table: make(map[string]*task.Task)},
		delivery: &deliveryTable{
			table:  make(map[string]*task.Delivery),
			unique: make(map[deliveryKey]string),
		},
	}
	return db, nil
}
