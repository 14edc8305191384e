package events

import (
	"context"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/google/uuid"
)

const (
	EventTypeUserLoggedIn    = "auth.login"
	EventTypeDocumentCreated = "document.created"
	EventTypeDocumentUpdated = "document.updated"
	EventTypeDocumentDeleted = "document.deleted"
	EventTypeFileDeleted     = "file.deleted"
	EventTypeFileDownloaded  = "file.downloaded"
	EventTypeUserCreated     = "user.created"
	EventTypeUserUpdated     = "user.updated"
	EventTypeUserDeleted     = "user.deleted"
	EventTypeSettingsChanged = "settings.changed"
	EventTypePasswordChanged = "settings.password_changed"
)

const (
	ModuleAuth      = "auth"
	ModuleUsers     = "users"
	ModuleDocuments = "documents"
	ModuleFiles     = "files"
	ModuleSettings  = "settings"
)

const (
	ActionLogin    = "login"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionDownload = "download"
)

// DocumentMutationTypes change what the dashboard summarizes.
var DocumentMutationTypes = []string{
	EventTypeDocumentCreated,
	EventTypeDocumentUpdated,
	EventTypeDocumentDeleted,
	EventTypeFileDeleted,
}

// ActivityTypes is every event recorded in the audit log.
var ActivityTypes = []string{
	EventTypeUserLoggedIn,
	EventTypeDocumentCreated,
	EventTypeDocumentUpdated,
	EventTypeDocumentDeleted,
	EventTypeFileDeleted,
	EventTypeFileDownloaded,
	EventTypeUserCreated,
	EventTypeUserUpdated,
	EventTypeUserDeleted,
	EventTypeSettingsChanged,
	EventTypePasswordChanged,
}

type ActivityEvent struct {
	BaseEvent
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Module      string `json:"module"`
	Action      string `json:"action"`
	EntityID    int64  `json:"entity_id"`
	Description string `json:"description"`
	IPAddress   string `json:"ip_address"`
	UserAgent   string `json:"user_agent"`
}

// NewActivityEvent builds an event for the caller found in ctx.
func NewActivityEvent(ctx context.Context, eventType, module, action string, entityID int64, description string) *ActivityEvent {
	var userID int64
	var username string
	if p, ok := internal.PrincipalFromContext(ctx); ok {
		userID, username = p.ID, p.Username
	}
	return newActivityEvent(ctx, eventType, module, action, userID, username, entityID, description)
}

// NewActivityEventFor builds an event for an explicit actor, used before a principal exists (login).
func NewActivityEventFor(ctx context.Context, eventType, module, action string, userID int64, username string, entityID int64, description string) *ActivityEvent {
	return newActivityEvent(ctx, eventType, module, action, userID, username, entityID, description)
}

func newActivityEvent(ctx context.Context, eventType, module, action string, userID int64, username string, entityID int64, description string) *ActivityEvent {
	meta := internal.RequestMetaFromContext(ctx)
	return &ActivityEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":   userID,
				"module":    module,
				"action":    action,
				"entity_id": entityID,
			},
		},
		UserID:      userID,
		Username:    username,
		Module:      module,
		Action:      action,
		EntityID:    entityID,
		Description: description,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}
}

// Publisher is the part of the bus domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
