package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"support_directory_go/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResourcePtr constrains P to be *T and a directory resource
type ResourcePtr[T any] interface {
	*T
	models.Resource
}

// AttributeSet maps attribute category keys to values
type AttributeSet map[string][]string

// Patch is a validated partial update: columns to set and attribute
// categories to replace. Categories absent from the patch are untouched.
type Patch struct {
	Fields     map[string]interface{}
	Attributes AttributeSet
}

const maxAttributeValues = 50

// ResourceRepository reads and writes one resource domain
type ResourceRepository[T any, P ResourcePtr[T]] struct {
	domain ResourceDomain
	deps   *Dependencies
}

func NewResourceRepository[T any, P ResourcePtr[T]](domain ResourceDomain, deps *Dependencies) *ResourceRepository[T, P] {
	return &ResourceRepository[T, P]{domain: domain, deps: deps}
}

func (r *ResourceRepository[T, P]) Domain() ResourceDomain {
	return r.domain
}

func orderedAttributes(db *gorm.DB) *gorm.DB {
	return db.Order("category ASC").Order("sort_order ASC")
}

// Find runs a discovery query. Inactive resources never match; with a
// proximity filter, resources without coordinates never match. Restricted
// resources match only staff criteria.
func (r *ResourceRepository[T, P]) Find(ctx context.Context, criteria FilterCriteria) ([]P, error) {
	q, err := Compose(criteria, r.domain.DiscoveryVocabulary(criteria.Staff()))
	if err != nil {
		return nil, err
	}

	var rows []P
	err = retryRead(ctx, r.deps.Logger, r.deps.Metrics, r.deps.ReadAttempts, "find "+r.domain.Key, func() error {
		rows = nil
		return q.Apply(r.deps.DB.WithContext(ctx)).
			Preload("AttributeRecords", orderedAttributes).
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	rows = rankByProximity(q, rows)
	for _, row := range rows {
		groupAttributes(r.domain, row)
	}

	r.deps.Metrics.observeDiscovery(r.domain.Key, q.HasProximity(), len(rows))
	r.deps.Logger.Debug("Discovery query",
		zap.String("domain", r.domain.Key),
		zap.String("query", q.Describe()),
		zap.Int("results", len(rows)))
	return rows, nil
}

// Get loads one resource. Inactive resources are only returned when
// includeInactive is set.
func (r *ResourceRepository[T, P]) Get(ctx context.Context, id string, includeInactive bool) (P, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, NewNotFoundError(r.domain.Key, id)
	}

	var row P
	err := retryRead(ctx, r.deps.Logger, r.deps.Metrics, r.deps.ReadAttempts, "get "+r.domain.Key, func() error {
		row = P(new(T))
		q := r.deps.DB.WithContext(ctx).Preload("AttributeRecords", orderedAttributes).Where("id = ?", id)
		if !includeInactive {
			q = q.Where("is_active = ?", true)
		}
		return q.First(row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(r.domain.Key, id)
	}
	if err != nil {
		return nil, err
	}

	groupAttributes(r.domain, row)
	return row, nil
}

// ParsePayload decodes a create payload. Attribute categories may be given
// at the top level by JSON name; unknown keys are rejected.
func (r *ResourceRepository[T, P]) ParsePayload(raw []byte) (P, AttributeSet, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, nil, err
	}

	attrs := AttributeSet{}
	scalars := make(map[string]json.RawMessage, len(fields))
	for key, value := range fields {
		if key == "id" {
			continue
		}
		if c, ok := r.domain.Category(key); ok {
			values, err := decodeValues(key, value)
			if err != nil {
				return nil, nil, err
			}
			attrs[c.Key] = values
			continue
		}
		if _, ok := r.domain.Field(key); !ok {
			return nil, nil, NewValidationError("unknown field %q", key)
		}
		scalars[key] = value
	}

	body, err := json.Marshal(scalars)
	if err != nil {
		return nil, nil, NewValidationError("invalid %s payload", r.domain.Label)
	}
	resource := P(new(T))
	if err := json.Unmarshal(body, resource); err != nil {
		return nil, nil, NewValidationError("invalid %s payload: %v", r.domain.Label, err)
	}
	return resource, attrs, nil
}

// ParsePatch decodes and validates a partial update
func (r *ResourceRepository[T, P]) ParsePatch(raw []byte) (Patch, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Patch{}, err
	}

	patch := Patch{Fields: map[string]interface{}{}, Attributes: AttributeSet{}}
	for key, value := range fields {
		if key == "id" {
			continue
		}
		if c, ok := r.domain.Category(key); ok {
			values, err := decodeValues(key, value)
			if err != nil {
				return Patch{}, err
			}
			patch.Attributes[c.Key] = values
			continue
		}
		fs, ok := r.domain.Field(key)
		if !ok {
			return Patch{}, NewValidationError("unknown field %q", key)
		}
		v, err := decodeField(fs, value)
		if err != nil {
			return Patch{}, err
		}
		patch.Fields[fs.Column] = v
	}

	if len(patch.Fields) == 0 && len(patch.Attributes) == 0 {
		return Patch{}, NewValidationError("nothing to update")
	}
	if name, ok := patch.Fields["name"]; ok && name == "" {
		return Patch{}, NewValidationError("name must not be empty")
	}
	lat, hasLat := patch.Fields["latitude"]
	lng, hasLng := patch.Fields["longitude"]
	if hasLat != hasLng || (lat == nil) != (lng == nil) {
		return Patch{}, NewValidationError("latitude and longitude must be supplied together")
	}
	if hasLat && lat != nil {
		if err := ValidateLocation(models.Location{Latitude: lat.(float64), Longitude: lng.(float64)}); err != nil {
			return Patch{}, err
		}
	}
	return patch, nil
}

// Create validates, sanitizes and geocodes a new resource, then inserts it
// with its attribute rows and an activity entry in one atomic write.
func (r *ResourceRepository[T, P]) Create(ctx context.Context, actor Actor, resource P, attrs AttributeSet) (P, error) {
	if err := r.deps.Guard.CheckResourceWrite(actor, r.domain, resource); err != nil {
		return nil, err
	}

	base := resource.Base()
	sanitizeResource(base)
	attrs, err := r.normalizeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	if err := r.validate(resource); err != nil {
		return nil, err
	}

	base.ID = ""
	base.IsActive = true
	base.IsVerified = false
	base.Distance = nil
	base.Attributes = nil
	if _, ok := base.Location(); !ok && base.Postcode != "" {
		r.geocode(ctx, base)
	}

	steps := []WriteStep{
		Insert("resource", func(WriteResults) (models.Record, error) { return resource, nil }),
	}
	steps = append(steps, attributeInserts(r.domain, StepID("resource"), attrs, nil)...)
	steps = append(steps, Activity(actor, models.ActivityActionCreate, r.domain.Key, StepID("resource"),
		fmt.Sprintf("Created %s %q", r.domain.Label, base.Name), nil, resourceState(resource)))

	if _, err := r.deps.Writer.Execute(ctx, steps...); err != nil {
		return nil, err
	}

	base.Attributes = r.attributeView(attrs)
	r.dispatchCreated(ctx, resource)
	return resource, nil
}

// Update applies a patch: present scalar fields are set, verification is
// reset, and every attribute category present is replaced wholesale.
func (r *ResourceRepository[T, P]) Update(ctx context.Context, actor Actor, id string, patch Patch) (P, error) {
	existing, err := r.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := r.deps.Guard.CheckResourceWrite(actor, r.domain, existing); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"is_verified": false}
	oldValues := map[string]interface{}{}
	newValues := map[string]interface{}{}
	previous := resourceState(existing)

	for _, fs := range r.domain.AllFields() {
		v, ok := patch.Fields[fs.Column]
		if !ok {
			continue
		}
		if fs.AdminOnly && !actor.IsAdmin() {
			return nil, NewForbiddenError("only admins may change %s", fs.JSON)
		}
		if s, isText := v.(string); isText && fs.Kind == ValueText {
			v = SanitizeText(s)
			if fs.Column == "name" && v == "" {
				return nil, NewValidationError("name must not be empty")
			}
		}
		updates[fs.Column] = v
		oldValues[fs.JSON] = previous[fs.JSON]
		newValues[fs.JSON] = v
	}

	if postcode, ok := updates["postcode"].(string); ok && postcode != "" && r.deps.Geocoder != nil {
		_, hasLat := updates["latitude"]
		_, located := existing.Base().Location()
		moved := NormalizePostcode(postcode) != NormalizePostcode(existing.Base().Postcode)
		if !hasLat && (moved || !located) {
			target := &models.ResourceBase{Postcode: postcode}
			if r.geocode(ctx, target) {
				loc, _ := target.Location()
				updates["latitude"] = loc.Latitude
				updates["longitude"] = loc.Longitude
				newValues["latitude"] = loc.Latitude
				newValues["longitude"] = loc.Longitude
			} else if located {
				// The stored coordinates belong to the previous postcode
				updates["latitude"] = nil
				updates["longitude"] = nil
				oldValues["latitude"] = previous["latitude"]
				oldValues["longitude"] = previous["longitude"]
				newValues["latitude"] = nil
				newValues["longitude"] = nil
			}
		}
	}

	attrs, err := r.normalizeAttributes(patch.Attributes)
	if err != nil {
		return nil, err
	}
	for key, values := range attrs {
		c, _ := r.domain.Category(key)
		oldValues[c.JSON] = existing.Base().Attributes[c.JSON]
		newValues[c.JSON] = values
	}

	steps := []WriteStep{r.updateStep(id, updates)}
	steps = append(steps, r.replaceAttributeSteps(id, attrs)...)
	steps = append(steps, Activity(actor, models.ActivityActionUpdate, r.domain.Key, FixedID(id),
		fmt.Sprintf("Updated %s %q", r.domain.Label, existing.Base().Name), oldValues, newValues))

	if _, err := r.deps.Writer.Execute(ctx, steps...); err != nil {
		return nil, err
	}
	return r.Get(ctx, id, true)
}

// AppendAttributes adds values to one category after the existing ones.
// Values already present are skipped.
func (r *ResourceRepository[T, P]) AppendAttributes(ctx context.Context, actor Actor, id, category string, values []string) error {
	c, values, err := r.attributeInput(category, values)
	if err != nil {
		return err
	}
	existing, err := r.Get(ctx, id, true)
	if err != nil {
		return err
	}
	if err := r.deps.Guard.CheckResourceWrite(actor, r.domain, existing); err != nil {
		return err
	}

	appendStep := WriteStep{
		Name: "attributes." + c.Key,
		Run: func(tx *gorm.DB, prior WriteResults) (WriteResult, error) {
			scope := tx.Model(&models.ResourceAttribute{}).
				Where("resource_type = ? AND resource_id = ? AND category = ?", r.domain.Key, id, c.Key)

			var present []string
			if err := scope.Session(&gorm.Session{}).Pluck("value", &present).Error; err != nil {
				return WriteResult{}, err
			}
			var next int
			if err := scope.Session(&gorm.Session{}).Select("COALESCE(MAX(sort_order) + 1, 0)").Scan(&next).Error; err != nil {
				return WriteResult{}, err
			}

			var rows []models.ResourceAttribute
			for _, v := range values {
				if containsString(present, v) {
					continue
				}
				rows = append(rows, models.ResourceAttribute{
					ResourceType: r.domain.Key,
					ResourceID:   id,
					Category:     c.Key,
					Value:        v,
					SortOrder:    next,
				})
				next++
			}
			if len(rows) == 0 {
				return WriteResult{}, nil
			}
			res := tx.Create(&rows)
			return WriteResult{RowsAffected: res.RowsAffected}, res.Error
		},
	}

	_, err = r.deps.Writer.Execute(ctx,
		r.updateStep(id, map[string]interface{}{"is_verified": false}),
		appendStep,
		Activity(actor, models.ActivityActionUpdate, r.domain.Key, FixedID(id),
			fmt.Sprintf("Added %s to %s %q", c.JSON, r.domain.Label, existing.Base().Name),
			nil, map[string]interface{}{c.JSON: values}),
	)
	return err
}

// ReplaceAttributes replaces every value of one category
func (r *ResourceRepository[T, P]) ReplaceAttributes(ctx context.Context, actor Actor, id, category string, values []string) error {
	c, ok := r.domain.Category(category)
	if !ok {
		return NewValidationError("unknown attribute category %q", category)
	}
	attrs, err := r.normalizeAttributes(AttributeSet{c.Key: values})
	if err != nil {
		return err
	}
	existing, err := r.Get(ctx, id, true)
	if err != nil {
		return err
	}
	if err := r.deps.Guard.CheckResourceWrite(actor, r.domain, existing); err != nil {
		return err
	}

	steps := []WriteStep{r.updateStep(id, map[string]interface{}{"is_verified": false})}
	steps = append(steps, r.replaceAttributeSteps(id, attrs)...)
	steps = append(steps, Activity(actor, models.ActivityActionUpdate, r.domain.Key, FixedID(id),
		fmt.Sprintf("Replaced %s of %s %q", c.JSON, r.domain.Label, existing.Base().Name),
		map[string]interface{}{c.JSON: existing.Base().Attributes[c.JSON]},
		map[string]interface{}{c.JSON: attrs[c.Key]}))

	_, err = r.deps.Writer.Execute(ctx, steps...)
	return err
}

// Deactivate hides a resource from discovery. Resources are never deleted.
func (r *ResourceRepository[T, P]) Deactivate(ctx context.Context, actor Actor, id string) error {
	existing, err := r.Get(ctx, id, true)
	if err != nil {
		return err
	}
	if err := r.deps.Guard.CheckResourceWrite(actor, r.domain, existing); err != nil {
		return err
	}
	if !existing.Base().IsActive {
		return NewConflictError("%s %s is already inactive", r.domain.Key, id)
	}

	_, err = r.deps.Writer.Execute(ctx,
		r.guardedUpdateStep(id, "is_active = ?", true, map[string]interface{}{"is_active": false}),
		Activity(actor, models.ActivityActionDeactivate, r.domain.Key, FixedID(id),
			fmt.Sprintf("Deactivated %s %q", r.domain.Label, existing.Base().Name),
			map[string]interface{}{"isActive": true}, map[string]interface{}{"isActive": false}),
	)
	return err
}

// Verify marks an active resource as checked by staff
func (r *ResourceRepository[T, P]) Verify(ctx context.Context, actor Actor, id string) error {
	existing, err := r.Get(ctx, id, true)
	if err != nil {
		return err
	}
	if err := r.deps.Guard.CheckResourceWrite(actor, r.domain, existing); err != nil {
		return err
	}
	if !existing.Base().IsActive {
		return NewConflictError("inactive %s cannot be verified", r.domain.Key)
	}

	_, err = r.deps.Writer.Execute(ctx,
		r.guardedUpdateStep(id, "is_active = ?", true, map[string]interface{}{"is_verified": true}),
		Activity(actor, models.ActivityActionVerify, r.domain.Key, FixedID(id),
			fmt.Sprintf("Verified %s %q", r.domain.Label, existing.Base().Name),
			map[string]interface{}{"isVerified": existing.Base().IsVerified}, map[string]interface{}{"isVerified": true}),
	)
	return err
}

func (r *ResourceRepository[T, P]) updateStep(id string, updates map[string]interface{}) WriteStep {
	return Exec("resource", func(tx *gorm.DB, _ WriteResults) (int64, error) {
		res := tx.Model(P(new(T))).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, NewNotFoundError(r.domain.Key, id)
		}
		return res.RowsAffected, nil
	})
}

// guardedUpdateStep updates only while cond still holds; a concurrent
// change surfaces as a conflict
func (r *ResourceRepository[T, P]) guardedUpdateStep(id, cond string, arg interface{}, updates map[string]interface{}) WriteStep {
	return Exec("resource", func(tx *gorm.DB, _ WriteResults) (int64, error) {
		res := tx.Model(P(new(T))).Where("id = ?", id).Where(cond, arg).Updates(updates)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, NewConflictError("%s %s was changed concurrently", r.domain.Key, id)
		}
		return res.RowsAffected, nil
	})
}

// replaceAttributeSteps clears and reinserts each category present, in
// domain category order
func (r *ResourceRepository[T, P]) replaceAttributeSteps(id string, attrs AttributeSet) []WriteStep {
	var steps []WriteStep
	for _, c := range r.domain.Categories {
		if _, ok := attrs[c.Key]; !ok {
			continue
		}
		steps = append(steps, Exec("attributes."+c.Key+".clear", func(tx *gorm.DB, _ WriteResults) (int64, error) {
			res := tx.Where("resource_type = ? AND resource_id = ? AND category = ?", r.domain.Key, id, c.Key).
				Delete(&models.ResourceAttribute{})
			return res.RowsAffected, res.Error
		}))
	}
	return append(steps, attributeInserts(r.domain, FixedID(id), attrs, nil)...)
}

// attributeInserts emits one insert step per attribute value
func attributeInserts(domain ResourceDomain, owner func(WriteResults) string, attrs AttributeSet, offsets map[string]int) []WriteStep {
	var steps []WriteStep
	for _, c := range domain.Categories {
		for i, value := range attrs[c.Key] {
			order := offsets[c.Key] + i
			steps = append(steps, Insert(fmt.Sprintf("attribute.%s.%d", c.Key, i), func(prior WriteResults) (models.Record, error) {
				return &models.ResourceAttribute{
					ResourceType: domain.Key,
					ResourceID:   owner(prior),
					Category:     c.Key,
					Value:        value,
					SortOrder:    order,
				}, nil
			}))
		}
	}
	return steps
}

func (r *ResourceRepository[T, P]) attributeInput(category string, values []string) (AttributeCategory, []string, error) {
	c, ok := r.domain.Category(category)
	if !ok {
		return AttributeCategory{}, nil, NewValidationError("unknown attribute category %q", category)
	}
	values = SanitizeValues(values)
	if len(values) == 0 {
		return AttributeCategory{}, nil, NewValidationError("at least one %s value is required", c.JSON)
	}
	if len(values) > maxAttributeValues {
		return AttributeCategory{}, nil, NewValidationError("too many %s values", c.JSON)
	}
	return c, values, nil
}

// normalizeAttributes keys the set by category key and sanitizes values.
// An empty list is kept: replacing with nothing clears the category.
func (r *ResourceRepository[T, P]) normalizeAttributes(attrs AttributeSet) (AttributeSet, error) {
	out := AttributeSet{}
	for name, values := range attrs {
		c, ok := r.domain.Category(name)
		if !ok {
			return nil, NewValidationError("unknown attribute category %q", name)
		}
		values = SanitizeValues(values)
		if len(values) > maxAttributeValues {
			return nil, NewValidationError("too many %s values", c.JSON)
		}
		out[c.Key] = values
	}
	return out, nil
}

func (r *ResourceRepository[T, P]) attributeView(attrs AttributeSet) map[string][]string {
	view := map[string][]string{}
	for _, c := range r.domain.Categories {
		if values := attrs[c.Key]; len(values) > 0 {
			view[c.JSON] = values
		}
	}
	if len(view) == 0 {
		return nil
	}
	return view
}

func (r *ResourceRepository[T, P]) validate(resource P) error {
	base := resource.Base()
	if base.Name == "" {
		return NewValidationError("name is required")
	}
	if len(base.Name) > 200 {
		return NewValidationError("name is too long")
	}
	if (base.Latitude == nil) != (base.Longitude == nil) {
		return NewValidationError("latitude and longitude must be supplied together")
	}
	if loc, ok := base.Location(); ok {
		if err := ValidateLocation(loc); err != nil {
			return err
		}
	}

	state := resourceState(resource)
	for _, f := range r.domain.Fields {
		switch f.Kind {
		case ValueEnum:
			if v := state.String(f.JSON); v != "" && !containsString(f.Enum, v) {
				return NewValidationError("%s must be one of %v", f.JSON, f.Enum)
			}
		case ValueInt:
			if n, ok := state.Float(f.JSON); ok && n < 0 {
				return NewValidationError("%s must not be negative", f.JSON)
			}
		}
	}
	return nil
}

// geocode fills coordinates from the postcode and reports whether it did.
// Failure leaves the resource without a location.
func (r *ResourceRepository[T, P]) geocode(ctx context.Context, base *models.ResourceBase) bool {
	if r.deps.Geocoder == nil {
		return false
	}
	loc, err := r.deps.Geocoder.Geocode(ctx, base.Postcode)
	if err != nil {
		r.deps.Logger.Info("Resource left without location",
			zap.String("domain", r.domain.Key),
			zap.String("postcode", base.Postcode),
			zap.Error(err))
		return false
	}
	base.SetLocation(loc)
	return true
}

func (r *ResourceRepository[T, P]) dispatchCreated(ctx context.Context, resource P) {
	if r.deps.Dispatcher == nil {
		return
	}
	staff, err := r.deps.Guard.StaffRecipients(ctx)
	if err != nil {
		r.deps.Logger.Warn("Could not resolve staff recipients", zap.Error(err))
	}
	r.deps.Dispatcher.OnWriteCompleted(ctx, Transition{
		EntityType: r.domain.Key,
		EntityID:   resource.GetID(),
		Event:      EventCreated,
		Current:    resourceState(resource),
	}, Recipients{Staff: staff})
}

func sanitizeResource(b *models.ResourceBase) {
	b.Name = SanitizeText(b.Name)
	b.Description = SanitizeText(b.Description)
	b.Address = SanitizeText(b.Address)
	b.Postcode = SanitizeText(b.Postcode)
	b.Phone = SanitizeText(b.Phone)
	b.Website = SanitizeText(b.Website)
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, NewValidationError("request body must be a JSON object")
	}
	return fields, nil
}

func decodeValues(key string, raw json.RawMessage) ([]string, error) {
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, NewValidationError("%s must be a list of strings", key)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func decodeField(fs FieldSpec, raw json.RawMessage) (interface{}, error) {
	switch fs.Kind {
	case ValueBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, NewValidationError("%s must be true or false", fs.JSON)
		}
		return b, nil
	case ValueInt:
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, NewValidationError("%s must be a whole number", fs.JSON)
		}
		if n < 0 {
			return nil, NewValidationError("%s must not be negative", fs.JSON)
		}
		return n, nil
	case ValueFloat:
		var f *float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, NewValidationError("%s must be a number", fs.JSON)
		}
		if f == nil {
			return nil, nil
		}
		return *f, nil
	case ValueEnum:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, NewValidationError("%s must be a string", fs.JSON)
		}
		if s != "" && !containsString(fs.Enum, s) {
			return nil, NewValidationError("%s must be one of %v", fs.JSON, fs.Enum)
		}
		return s, nil
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, NewValidationError("%s must be a string", fs.JSON)
		}
		return s, nil
	}
}

// Search is Find behind the DirectoryService interface
func (r *ResourceRepository[T, P]) Search(ctx context.Context, actor Actor, criteria FilterCriteria) ([]models.Resource, error) {
	if actor.IsStaff() {
		criteria = criteria.ForStaff()
	}
	rows, err := r.Find(ctx, criteria)
	if err != nil {
		return nil, err
	}
	out := make([]models.Resource, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out, nil
}

// Lookup returns one resource. Staff also see inactive and restricted
// resources; others get not found for them.
func (r *ResourceRepository[T, P]) Lookup(ctx context.Context, actor Actor, id string) (models.Resource, error) {
	row, err := r.Get(ctx, id, actor.IsStaff())
	if err != nil {
		return nil, err
	}
	if r.domain.HiddenFrom(actor, row) {
		return nil, NewNotFoundError(r.domain.Key, id)
	}
	return row, nil
}

// CreateJSON parses a raw create payload and creates the resource
func (r *ResourceRepository[T, P]) CreateJSON(ctx context.Context, actor Actor, raw []byte) (models.Resource, error) {
	if err := r.deps.Guard.RequireStaff(actor); err != nil {
		return nil, err
	}
	resource, attrs, err := r.ParsePayload(raw)
	if err != nil {
		return nil, err
	}
	created, err := r.Create(ctx, actor, resource, attrs)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateJSON parses a raw patch and applies it
func (r *ResourceRepository[T, P]) UpdateJSON(ctx context.Context, actor Actor, id string, raw []byte) (models.Resource, error) {
	if err := r.deps.Guard.RequireStaff(actor); err != nil {
		return nil, err
	}
	patch, err := r.ParsePatch(raw)
	if err != nil {
		return nil, err
	}
	updated, err := r.Update(ctx, actor, id, patch)
	if err != nil {
		return nil, err
	}
	return updated, nil
}
