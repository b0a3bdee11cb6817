package task

import "github.com/trezcool/kazi/core/user"

// CanCreate reports whether principal may author a task of kind k.
// Broadcasting requires an elevated role; any authenticated principal may create personal tasks.
func CanCreate(principal user.User, k Kind) bool {
	if principal.ID == "" {
		return false
	}
	switch k {
	case KindPersonal:
		return true
	case KindBroadcast:
		return principal.IsElevated()
	}
	return false
}

// CanAssign reports whether principal may fan a task out to target.
// Non elevated principals may only assign personal tasks to themselves.
func CanAssign(principal user.User, target Target) bool {
	if !CanCreate(principal, target.Kind) {
		return false
	}
	if target.Kind == KindPersonal && !principal.IsElevated() {
		return target.RecipientID == "" || target.RecipientID == principal.ID
	}
	return true
}

// CanMutateTask reports whether principal may edit, delete or inspect the deliveries of t.
func CanMutateTask(principal user.User, t Task) bool {
	if principal.ID == "" {
		return false
	}
	return t.CreatedBy == principal.ID || principal.IsElevated()
}

// CanView reports whether principal may read v.
// Broadcast tasks are readable by anyone; personal tasks by their recipient, creator and elevated roles.
func CanView(principal user.User, v View) bool {
	if principal.ID == "" {
		return false
	}
	if v.Kind == KindBroadcast || v.IsRecipient() {
		return true
	}
	return CanMutateTask(principal, v.Task)
}

// CanMutateDelivery reports whether principal may change the status of d.
// Only the recipient may, whatever their role.
func CanMutateDelivery(principal user.User, d Delivery) bool {
	return principal.ID != "" && d.RecipientID == principal.ID
}
