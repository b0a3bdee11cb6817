package task_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
	dummydb "github.com/trezcool/kazi/storage/database/dummy"
	testutil "github.com/trezcool/kazi/tests"
)

var allStatuses = []task.Status{task.StatusPending, task.StatusInProgress, task.StatusCompleted}

// newRosterService returns a Service over a fresh store holding n students and one teacher.
func newRosterService(t *testing.T, n int) (*task.Service, task.Repository, user.User) {
	db, _ := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	repo := dummydb.NewTaskRepository(db)

	teacher := testutil.CreateUser(t, usrRepo, "teacher", "Mwalimu", "", []string{user.RoleTeacher}, true)
	for i := 0; i < n; i++ {
		testutil.CreateUser(t, usrRepo, fmt.Sprintf("s-%d", i), "Student", "", []string{user.RoleStudent}, i%2 == 0)
	}

	validate, translator := testutil.NewValidator()
	svc := task.NewService(repo, usrRepo, testutil.NewLogger(), nil, core.NewTestConfig(), validate, translator)
	return svc, repo, teacher
}

func TestFanoutCardinality(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("broadcast creates one pending delivery per roster member", prop.ForAll(
		func(n int) bool {
			svc, repo, teacher := newRosterService(t, n)
			tsk, err := svc.CreateTask(ctx, teacher, task.NewTask{Title: "x", Target: "broadcast:all"})
			if err != nil {
				return false
			}
			deliveries, err := repo.QueryDeliveriesForTask(ctx, tsk.ID)
			if err != nil || len(deliveries) != n+1 {
				return false
			}
			seen := make(map[string]bool, len(deliveries))
			for _, d := range deliveries {
				if d.Status != task.StatusPending || seen[d.RecipientID] {
					return false
				}
				seen[d.RecipientID] = true
			}
			return true
		},
		gen.IntRange(0, 40),
	))

	properties.Property("personal creates exactly one delivery for the recipient", prop.ForAll(
		func(n, pick int) bool {
			svc, repo, teacher := newRosterService(t, n)
			recipient := fmt.Sprintf("s-%d", pick%n)
			tsk, err := svc.CreateTask(ctx, teacher, task.NewTask{Title: "x", Target: "single:" + recipient})
			if err != nil {
				return false
			}
			deliveries, err := repo.QueryDeliveriesForTask(ctx, tsk.ID)
			return err == nil && len(deliveries) == 1 && deliveries[0].RecipientID == recipient
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestDeliveryStateMachine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("status updates follow the transition table", prop.ForAll(
		func(path []int) bool {
			svc, repo, teacher := newRosterService(t, 1)
			tsk, err := svc.CreateTask(ctx, teacher, task.NewTask{Title: "x", Target: "single:s-0"})
			if err != nil {
				return false
			}
			deliveries, _ := repo.QueryDeliveriesForTask(ctx, tsk.ID)
			d := deliveries[0]
			recipient := user.User{ID: d.RecipientID}

			for _, i := range path {
				to := allStatuses[i]
				before, _ := repo.GetDeliveryByID(ctx, d.ID)
				got, err := svc.UpdateDeliveryStatus(ctx, recipient, d.ID, to)
				after, _ := repo.GetDeliveryByID(ctx, d.ID)

				switch {
				case before.Status == to:
					if err != nil || got != before || after != before {
						return false
					}
				case task.CanTransition(before.Status, to):
					if err != nil || got.Status != to || after.Status != to {
						return false
					}
				default:
					if err != task.ErrInvalidTransition || after != before {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(allStatuses)-1)),
	))

	properties.Property("non recipients never mutate a delivery", prop.ForAll(
		func(i, role int) bool {
			svc, repo, teacher := newRosterService(t, 2)
			tsk, err := svc.CreateTask(ctx, teacher, task.NewTask{Title: "x", Target: "single:s-0"})
			if err != nil {
				return false
			}
			deliveries, _ := repo.QueryDeliveriesForTask(ctx, tsk.ID)
			before := deliveries[0]

			intruder := user.User{ID: "s-1", Roles: []string{user.AllRoles[role]}}
			_, err = svc.UpdateDeliveryStatus(ctx, intruder, before.ID, allStatuses[i])
			after, _ := repo.GetDeliveryByID(ctx, before.ID)
			return err == task.ErrForbidden && after == before
		},
		gen.IntRange(0, len(allStatuses)-1),
		gen.IntRange(0, len(user.AllRoles)-1),
	))

	properties.TestingRun(t)
}
