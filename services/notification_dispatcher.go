package services

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"support_directory_go/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entity types carried by transitions and notifications
const (
	EntityApplication = "application"
	EntityCase        = "case_record"
	EntityGoal        = "goal"
	EntityUser        = "user"
)

// Transition events
const (
	EventCreated       = "created"
	EventUpdated       = "updated"
	EventStatusChanged = "status_changed"
	EventReassigned    = "reassigned"
	EventProgress      = "progress"
)

// State is a flattened snapshot of an entity, keyed by JSON field name
type State map[string]interface{}

func (s State) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

func (s State) String(key string) string {
	switch v := s[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	default:
		return fmt.Sprint(v)
	}
}

func (s State) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	}
	return 0, false
}

// Transition describes a committed write: the entity's state before and after
type Transition struct {
	EntityType string
	EntityID   string
	Event      string
	Previous   State
	Current    State
}

// Changed reports whether key differs between the previous and current state
func (t Transition) Changed(key string) bool {
	return t.Previous.String(key) != t.Current.String(key)
}

// Became reports whether key changed to value in this transition
func (t Transition) Became(key string, value string) bool {
	return t.Changed(key) && t.Current.String(key) == value
}

// Recipients are the candidate users a rule can address
type Recipients struct {
	Owner    string
	Assignee string
	Staff    []string
}

// RecipientSelector picks the users a rule notifies
type RecipientSelector func(t Transition, r Recipients) []string

func ToOwner(_ Transition, r Recipients) []string { return []string{r.Owner} }

func ToAssignee(_ Transition, r Recipients) []string { return []string{r.Assignee} }

func ToOwnerAndAssignee(_ Transition, r Recipients) []string {
	return []string{r.Owner, r.Assignee}
}

func ToStaff(_ Transition, r Recipients) []string { return r.Staff }

// NotificationRule maps a qualifying transition to notifications. Title and
// Message are text/template sources rendered against the Transition.
type NotificationRule struct {
	Name       string
	EntityType string
	When       func(Transition) bool
	Title      string
	Message    string
	Priority   string
	Recipients RecipientSelector
	Delay      time.Duration
}

// DefaultNotificationRules is the production rule table
func DefaultNotificationRules() []NotificationRule {
	return []NotificationRule{
		{
			Name:       "nhs_practice_accepting",
			EntityType: models.DomainHealthcare,
			When: func(t Transition) bool {
				return t.Event == EventCreated && t.Current.Bool("nhsFunded") && t.Current.Bool("acceptingNewPatients")
			},
			Title:      "New NHS practice accepting patients",
			Message:    "{{.Current.name}} is NHS funded and accepting new patients{{with .Current.postcode}} ({{.}}){{end}}.",
			Priority:   models.NotificationPriorityNormal,
			Recipients: ToStaff,
		},
		{
			Name:       "application_approved",
			EntityType: EntityApplication,
			When:       func(t Transition) bool { return t.Became("status", models.ApplicationStatusApproved) },
			Title:      "Your application was approved",
			Message:    "Your {{.Current.benefitType}} application has been approved.{{with .Current.amount}} A payment of £{{printf \"%.2f\" .}} has been scheduled.{{end}}",
			Priority:   models.NotificationPriorityHigh,
			Recipients: ToOwner,
		},
		{
			Name:       "application_rejected",
			EntityType: EntityApplication,
			When:       func(t Transition) bool { return t.Became("status", models.ApplicationStatusRejected) },
			Title:      "Your application was not approved",
			Message:    "Your {{.Current.benefitType}} application was not approved.{{with .Current.decisionNotes}} {{.}}{{end}}",
			Priority:   models.NotificationPriorityHigh,
			Recipients: ToOwner,
		},
		{
			Name:       "case_reassigned",
			EntityType: EntityCase,
			When: func(t Transition) bool {
				return t.Changed("assignedToId") && t.Current.String("assignedToId") != ""
			},
			Title:      "Case assigned to you",
			Message:    "You are now the case worker for {{.Current.personName}}.",
			Priority:   models.NotificationPriorityNormal,
			Recipients: ToAssignee,
		},
		{
			Name:       "case_closed",
			EntityType: EntityCase,
			When:       func(t Transition) bool { return t.Became("status", models.CaseStatusClosed) },
			Title:      "Case closed",
			Message:    "The case for {{.Current.personName}} has been closed.{{with .Current.outcome}} Outcome: {{.}}{{end}}",
			Priority:   models.NotificationPriorityNormal,
			Recipients: ToOwnerAndAssignee,
		},
		{
			Name:       "goal_completed",
			EntityType: EntityGoal,
			When: func(t Transition) bool {
				before, _ := t.Previous.Float("progress")
				after, _ := t.Current.Float("progress")
				return before < 100 && after >= 100
			},
			Title:      "Goal completed",
			Message:    "Well done, you completed \"{{.Current.title}}\".",
			Priority:   models.NotificationPriorityNormal,
			Recipients: ToOwner,
		},
	}
}

type compiledRule struct {
	NotificationRule
	title   *template.Template
	message *template.Template
}

func (r compiledRule) render(t Transition) (string, string, error) {
	var title, message bytes.Buffer
	if err := r.title.Execute(&title, t); err != nil {
		return "", "", fmt.Errorf("render title: %w", err)
	}
	if err := r.message.Execute(&message, t); err != nil {
		return "", "", fmt.Errorf("render message: %w", err)
	}
	return title.String(), message.String(), nil
}

// NotificationDispatcher turns committed transitions into notification rows
// and hands them to the configured publishers. It never fails the write
// that triggered it.
type NotificationDispatcher struct {
	db         *gorm.DB
	rules      []compiledRule
	publishers []NotificationPublisher
	logger     *zap.Logger
	metrics    *EngineMetrics
	now        func() time.Time
}

func NewNotificationDispatcher(db *gorm.DB, rules []NotificationRule, publishers []NotificationPublisher, logger *zap.Logger, metrics *EngineMetrics) (*NotificationDispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Name == "" || rule.When == nil || rule.Recipients == nil {
			return nil, fmt.Errorf("notification rule %q is incomplete", rule.Name)
		}
		title, err := template.New(rule.Name + ".title").Parse(rule.Title)
		if err != nil {
			return nil, fmt.Errorf("parse title of rule %s: %w", rule.Name, err)
		}
		message, err := template.New(rule.Name + ".message").Parse(rule.Message)
		if err != nil {
			return nil, fmt.Errorf("parse message of rule %s: %w", rule.Name, err)
		}
		if rule.Priority == "" {
			rule.Priority = models.NotificationPriorityNormal
		}
		compiled = append(compiled, compiledRule{NotificationRule: rule, title: title, message: message})
	}

	return &NotificationDispatcher{
		db:         db,
		rules:      compiled,
		publishers: publishers,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}, nil
}

// OnWriteCompleted evaluates every rule against a committed transition,
// persists the resulting notifications in one batch and publishes them.
// Failures are logged and counted, never returned.
func (d *NotificationDispatcher) OnWriteCompleted(ctx context.Context, t Transition, recipients Recipients) []models.Notification {
	if d == nil {
		return nil
	}

	now := d.now()
	var notifications []models.Notification

	for _, rule := range d.rules {
		if rule.EntityType != t.EntityType || !rule.When(t) {
			continue
		}

		targets := uniqueNonEmpty(rule.Recipients(t, recipients))
		if len(targets) == 0 {
			d.logger.Debug("Notification rule matched without recipients",
				zap.String("rule", rule.Name),
				zap.String("entity_id", t.EntityID))
			continue
		}

		title, message, err := rule.render(t)
		if err != nil {
			d.metrics.notificationFailed("render")
			d.logger.Error("Failed to render notification",
				zap.String("rule", rule.Name),
				zap.String("entity_id", t.EntityID),
				zap.Error(err))
			continue
		}

		for _, recipientID := range targets {
			n := models.Notification{
				RecipientID: recipientID,
				EntityType:  t.EntityType,
				EntityID:    t.EntityID,
				Rule:        rule.Name,
				Title:       title,
				Message:     message,
				Priority:    rule.Priority,
				Metadata:    datatypes.JSONMap{"event": t.Event},
			}
			if rule.Delay > 0 {
				at := now.Add(rule.Delay)
				n.ScheduledFor = &at
			}
			notifications = append(notifications, n)
		}
	}

	if len(notifications) == 0 {
		return nil
	}

	if err := d.db.WithContext(ctx).Create(&notifications).Error; err != nil {
		d.metrics.notificationFailed("persist")
		d.logger.Error("Failed to persist notifications",
			zap.String("entity_type", t.EntityType),
			zap.String("entity_id", t.EntityID),
			zap.Int("count", len(notifications)),
			zap.Error(err))
		return nil
	}

	for _, n := range notifications {
		d.metrics.notificationCreated(n.Rule)
	}

	for _, p := range d.publishers {
		if err := p.Publish(ctx, notifications); err != nil {
			d.metrics.notificationFailed("publish_" + p.Name())
			d.logger.Warn("Notification publisher failed",
				zap.String("publisher", p.Name()),
				zap.Int("count", len(notifications)),
				zap.Error(err))
		}
	}

	return notifications
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
