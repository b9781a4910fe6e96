package services

import (
	"context"
	"fmt"
	"sort"

	"support_directory_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are shared by every engine component
type Dependencies struct {
	DB           *gorm.DB
	Writer       *TransactionalWriter
	Dispatcher   *NotificationDispatcher
	Guard        *AccessGuard
	Geocoder     Geocoder
	Logger       *zap.Logger
	Metrics      *EngineMetrics
	ReadAttempts int
}

// EngineOptions configures NewEngine. Zero values select defaults: a nop
// logger, no metrics, no geocoding, the log publisher and the default rules.
type EngineOptions struct {
	Logger       *zap.Logger
	Metrics      *EngineMetrics
	Geocoder     Geocoder
	Publishers   []NotificationPublisher
	Rules        []NotificationRule
	ReadAttempts int
}

// DirectoryService is the domain-independent view of a resource repository
type DirectoryService interface {
	Domain() ResourceDomain
	Search(ctx context.Context, actor Actor, criteria FilterCriteria) ([]models.Resource, error)
	Lookup(ctx context.Context, actor Actor, id string) (models.Resource, error)
	CreateJSON(ctx context.Context, actor Actor, raw []byte) (models.Resource, error)
	UpdateJSON(ctx context.Context, actor Actor, id string, raw []byte) (models.Resource, error)
	AppendAttributes(ctx context.Context, actor Actor, id, category string, values []string) error
	ReplaceAttributes(ctx context.Context, actor Actor, id, category string, values []string) error
	Deactivate(ctx context.Context, actor Actor, id string) error
	Verify(ctx context.Context, actor Actor, id string) error
}

// Engine wires the directory repositories and lifecycle services over one
// store
type Engine struct {
	Deps          *Dependencies
	Applications  *ApplicationService
	Cases         *CaseService
	Goals         *GoalService
	Notifications *NotificationService

	directories map[string]DirectoryService
}

func NewEngine(db *gorm.DB, opts EngineOptions) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := opts.ReadAttempts
	if attempts <= 0 {
		attempts = defaultReadAttempts
	}
	rules := opts.Rules
	if rules == nil {
		rules = DefaultNotificationRules()
	}
	publishers := opts.Publishers
	if len(publishers) == 0 {
		publishers = []NotificationPublisher{NewLogPublisher(logger)}
	}

	dispatcher, err := NewNotificationDispatcher(db, rules, publishers, logger, opts.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to build notification dispatcher: %w", err)
	}

	guard := NewAccessGuard(db, logger, opts.Metrics)
	guard.readAttempts = attempts

	deps := &Dependencies{
		DB:           db,
		Writer:       NewTransactionalWriter(db, logger, opts.Metrics),
		Dispatcher:   dispatcher,
		Guard:        guard,
		Geocoder:     opts.Geocoder,
		Logger:       logger,
		Metrics:      opts.Metrics,
		ReadAttempts: attempts,
	}

	e := &Engine{
		Deps:          deps,
		Applications:  NewApplicationService(deps),
		Cases:         NewCaseService(deps),
		Goals:         NewGoalService(deps),
		Notifications: NewNotificationService(db),
		directories:   map[string]DirectoryService{},
	}

	e.register(NewResourceRepository[models.HealthcareProvider](mustDomain(models.DomainHealthcare), deps))
	e.register(NewResourceRepository[models.MentalHealthService](mustDomain(models.DomainMentalHealth), deps))
	e.register(NewResourceRepository[models.AddictionService](mustDomain(models.DomainAddiction), deps))
	e.register(NewResourceRepository[models.HousingResource](mustDomain(models.DomainHousing), deps))
	e.register(NewResourceRepository[models.ServiceDogProvider](mustDomain(models.DomainServiceDog), deps))
	e.register(NewResourceRepository[models.EducationProvider](mustDomain(models.DomainEducation), deps))
	e.register(NewResourceRepository[models.BenefitAdvisor](mustDomain(models.DomainBenefits), deps))

	return e, nil
}

func mustDomain(key string) ResourceDomain {
	d, ok := DomainByKey(key)
	if !ok {
		panic("unknown resource domain " + key)
	}
	return d
}

func (e *Engine) register(d DirectoryService) {
	e.directories[d.Domain().Segment] = d
}

// Directory returns the repository behind a route segment
func (e *Engine) Directory(segment string) (DirectoryService, bool) {
	d, ok := e.directories[segment]
	return d, ok
}

// Directories returns every repository ordered by route segment
func (e *Engine) Directories() []DirectoryService {
	out := make([]DirectoryService, 0, len(e.directories))
	for _, d := range e.directories {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain().Segment < out[j].Domain().Segment })
	return out
}
