package task

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusInProgress}:   true,
		{StatusPending, StatusCompleted}:    true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusInProgress, StatusPending}:   true,
		{StatusCompleted, StatusInProgress}: true,
	}
	all := []Status{StatusPending, StatusInProgress, StatusCompleted, "archived"}

	for _, from := range all {
		for _, to := range all {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to))
			})
		}
	}
}
