package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"support_directory_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDispatcher(t *testing.T, rules []NotificationRule, publishers ...NotificationPublisher) *NotificationDispatcher {
	d, err := NewNotificationDispatcher(setupTestDB(t), rules, publishers, zap.NewNop(), nil)
	require.NoError(t, err)
	return d
}

func applicationTransition(from, to string) Transition {
	return Transition{
		EntityType: EntityApplication,
		EntityID:   uuid.New().String(),
		Event:      EventStatusChanged,
		Previous:   State{"status": from, "benefitType": models.BenefitCrisisGrant},
		Current:    State{"status": to, "benefitType": models.BenefitCrisisGrant, "amount": 250.0},
	}
}

func TestDispatcherApplicationRules(t *testing.T) {
	pub := &recordingPublisher{}
	d := newTestDispatcher(t, DefaultNotificationRules(), pub)
	owner := uuid.New().String()
	ctx := context.Background()

	created := d.OnWriteCompleted(ctx, applicationTransition(models.ApplicationStatusInReview, models.ApplicationStatusApproved), Recipients{Owner: owner})
	require.Len(t, created, 1)
	n := created[0]
	assert.Equal(t, owner, n.RecipientID)
	assert.Equal(t, "application_approved", n.Rule)
	assert.Equal(t, "Your application was approved", n.Title)
	assert.Equal(t, "Your CRISIS_GRANT application has been approved. A payment of £250.00 has been scheduled.", n.Message)
	assert.Equal(t, models.NotificationPriorityHigh, n.Priority)
	assert.Nil(t, n.ScheduledFor)
	assert.Len(t, pub.published, 1)

	var stored models.Notification
	require.NoError(t, d.db.First(&stored, "id = ?", n.ID).Error)
	assert.Equal(t, EventStatusChanged, stored.Metadata["event"])

	// Same status again does not qualify
	assert.Empty(t, d.OnWriteCompleted(ctx, applicationTransition(models.ApplicationStatusApproved, models.ApplicationStatusApproved), Recipients{Owner: owner}))
	// Moving into review does not notify
	assert.Empty(t, d.OnWriteCompleted(ctx, applicationTransition(models.ApplicationStatusPending, models.ApplicationStatusInReview), Recipients{Owner: owner}))
	// No owner, no notification
	assert.Empty(t, d.OnWriteCompleted(ctx, applicationTransition(models.ApplicationStatusInReview, models.ApplicationStatusRejected), Recipients{}))
}

func TestDispatcherCaseRules(t *testing.T) {
	d := newTestDispatcher(t, DefaultNotificationRules())
	owner, worker, other := uuid.New().String(), uuid.New().String(), uuid.New().String()
	ctx := context.Background()
	caseID := uuid.New().String()

	t.Run("ReassignedNotifiesNewAssignee", func(t *testing.T) {
		created := d.OnWriteCompleted(ctx, Transition{
			EntityType: EntityCase,
			EntityID:   caseID,
			Event:      EventReassigned,
			Previous:   State{"assignedToId": worker, "personName": "Sam"},
			Current:    State{"assignedToId": other, "personName": "Sam"},
		}, Recipients{Owner: owner, Assignee: other})
		require.Len(t, created, 1)
		assert.Equal(t, other, created[0].RecipientID)
		assert.Equal(t, "You are now the case worker for Sam.", created[0].Message)
	})

	t.Run("ClosedNotifiesOwnerAndAssigneeOnce", func(t *testing.T) {
		created := d.OnWriteCompleted(ctx, Transition{
			EntityType: EntityCase,
			EntityID:   caseID,
			Event:      EventStatusChanged,
			Previous:   State{"status": models.CaseStatusOpen, "personName": "Sam"},
			Current:    State{"status": models.CaseStatusClosed, "personName": "Sam", "outcome": "Housed"},
		}, Recipients{Owner: owner, Assignee: owner})
		require.Len(t, created, 1)
		assert.Equal(t, "The case for Sam has been closed. Outcome: Housed", created[0].Message)
	})
}

func TestDispatcherGoalThreshold(t *testing.T) {
	d := newTestDispatcher(t, DefaultNotificationRules())
	owner := uuid.New().String()
	ctx := context.Background()

	progress := func(before, after float64) []models.Notification {
		return d.OnWriteCompleted(ctx, Transition{
			EntityType: EntityGoal,
			EntityID:   uuid.New().String(),
			Event:      EventProgress,
			Previous:   State{"progress": before, "title": "Open a bank account"},
			Current:    State{"progress": after, "title": "Open a bank account"},
		}, Recipients{Owner: owner})
	}

	assert.Empty(t, progress(0, 50))
	assert.Empty(t, progress(100, 100))
	created := progress(50, 100)
	require.Len(t, created, 1)
	assert.Equal(t, "Goal completed", created[0].Title)
}

func TestDispatcherNHSPracticeRule(t *testing.T) {
	d := newTestDispatcher(t, DefaultNotificationRules())
	staff := []string{uuid.New().String(), uuid.New().String()}
	ctx := context.Background()

	created := d.OnWriteCompleted(ctx, Transition{
		EntityType: models.DomainHealthcare,
		EntityID:   uuid.New().String(),
		Event:      EventCreated,
		Current:    State{"name": "Park Lane Surgery", "postcode": "LS1 1UR", "nhsFunded": true, "acceptingNewPatients": true},
	}, Recipients{Staff: staff})
	require.Len(t, created, 2)
	assert.Equal(t, "Park Lane Surgery is NHS funded and accepting new patients (LS1 1UR).", created[0].Message)

	assert.Empty(t, d.OnWriteCompleted(ctx, Transition{
		EntityType: models.DomainHealthcare,
		EntityID:   uuid.New().String(),
		Event:      EventCreated,
		Current:    State{"name": "Private Clinic", "nhsFunded": false, "acceptingNewPatients": true},
	}, Recipients{Staff: staff}))
}

func TestDispatcherDelayAndFailures(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	rules := []NotificationRule{{
		Name:       "reminder",
		EntityType: EntityGoal,
		When:       func(t Transition) bool { return t.Event == EventCreated },
		Title:      "Goal check-in",
		Message:    "How is {{.Current.title}} going?",
		Recipients: ToOwner,
		Delay:      48 * time.Hour,
	}}
	d := newTestDispatcher(t, rules, failing)
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	created := d.OnWriteCompleted(context.Background(), Transition{
		EntityType: EntityGoal,
		EntityID:   uuid.New().String(),
		Event:      EventCreated,
		Current:    State{"title": "Register with a GP"},
	}, Recipients{Owner: uuid.New().String()})

	require.Len(t, created, 1)
	require.NotNil(t, created[0].ScheduledFor)
	assert.True(t, created[0].ScheduledFor.Equal(fixed.Add(48*time.Hour)))
	assert.Equal(t, models.NotificationPriorityNormal, created[0].Priority)
	assert.Len(t, failing.published, 1)
}

func TestNewNotificationDispatcherValidatesRules(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewNotificationDispatcher(db, []NotificationRule{{Name: "no_when", Recipients: ToOwner}}, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewNotificationDispatcher(db, []NotificationRule{{
		Name: "bad_template", When: func(Transition) bool { return true }, Recipients: ToOwner, Title: "{{.Current",
	}}, nil, nil, nil)
	assert.Error(t, err)

	var nilDispatcher *NotificationDispatcher
	assert.Nil(t, nilDispatcher.OnWriteCompleted(context.Background(), Transition{}, Recipients{}))
}
