package services

import (
	"context"
	"log"

	"github.com/guincho-oliveira/crm-api/models"
)

// PasswordNotifier tells a user their password was changed by an administrator
type PasswordNotifier interface {
	PasswordChanged(ctx context.Context, user *models.User)
}

// LogNotifier delivers the notification by writing it to the application log
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) PasswordChanged(_ context.Context, user *models.User) {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("password changed for %s <%s>", user.Name, user.Email)
}
