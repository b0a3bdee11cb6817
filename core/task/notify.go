package task

import (
	"net/mail"
	"time"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

const assignedTemplate = "task_assigned"

type assignmentData struct {
	TaskID        string
	Title         string
	Priority      Priority
	DueAt         string
	AuthorName    string
	RecipientName string
}

// assignmentMessages prepares one "task assigned" e-mail per recipient with an e-mail address.
// The author is never notified of their own task.
func assignmentMessages(conf *core.Config, author user.User, t Task, roster []user.User, recipients []string) []*core.EmailMessage {
	byID := make(map[string]user.User, len(roster))
	for _, usr := range roster {
		byID[usr.ID] = usr
	}

	authorName := author.Name
	if authorName == "" {
		authorName = author.Username
	}
	var dueAt string
	if t.DueAt != nil {
		dueAt = t.DueAt.Format(time.RFC1123)
	}

	msgs := make([]*core.EmailMessage, 0, len(recipients))
	for _, id := range recipients {
		usr, ok := byID[id]
		if !ok || usr.Email == "" || usr.ID == author.ID {
			continue
		}
		data := assignmentData{
			TaskID:        t.ID,
			Title:         t.Title,
			Priority:      t.Priority,
			DueAt:         dueAt,
			AuthorName:    authorName,
			RecipientName: usr.Name,
		}
		msgs = append(msgs, core.NewEmailMessage(
			conf, "New task: "+t.Title, assignedTemplate, data,
			mail.Address{Name: usr.Name, Address: usr.Email},
		))
	}
	return msgs
}

// notifyRecipients hands the assignment e-mails over to the mail service, which sends them asynchronously.
func (svc *Service) notifyRecipients(author user.User, t Task, roster []user.User, recipients []string) {
	if svc.mailSvc == nil || !svc.conf.Fanout.NotifyRecipients {
		return
	}
	if msgs := assignmentMessages(svc.conf, author, t, roster, recipients); len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}
