package services

import (
	"encoding/json"
	"sort"

	"support_directory_go/models"
)

// FieldSpec describes one updatable scalar column of a resource domain
type FieldSpec struct {
	JSON   string
	Column string
	Kind   ValueKind
	Enum   []string
	// AdminOnly fields may only be changed by admins
	AdminOnly bool
}

// AttributeCategory is one kind of one-to-many attribute row
type AttributeCategory struct {
	Key  string
	JSON string
}

// ResourceDomain describes a directory domain: its store table, discovery
// vocabulary, updatable fields and attribute categories.
type ResourceDomain struct {
	Key           string
	Segment       string
	Label         string
	Table         string
	DefaultRadius float64
	Vocabulary    []Predicate
	Fields        []FieldSpec
	Categories    []AttributeCategory
	// RequiresAdmin reports whether writes to the resource are restricted to
	// admins. Such resources are also hidden from non-staff readers.
	RequiresAdmin func(models.Resource) bool
	// Restricted predicates always apply to discovery by non-staff callers
	Restricted []Predicate
}

// DiscoveryVocabulary is the vocabulary a discovery query composes against.
// Restricted predicates follow the domain vocabulary unless staff is set.
func (d ResourceDomain) DiscoveryVocabulary(staff bool) []Predicate {
	if staff || len(d.Restricted) == 0 {
		return d.Vocabulary
	}
	out := make([]Predicate, 0, len(d.Vocabulary)+len(d.Restricted))
	out = append(out, d.Vocabulary...)
	return append(out, d.Restricted...)
}

// HiddenFrom reports whether a resource is invisible to actor
func (d ResourceDomain) HiddenFrom(actor Actor, r models.Resource) bool {
	return !actor.IsStaff() && d.RequiresAdmin != nil && d.RequiresAdmin(r)
}

// Category resolves an attribute category by key or JSON name
func (d ResourceDomain) Category(name string) (AttributeCategory, bool) {
	for _, c := range d.Categories {
		if c.Key == name || c.JSON == name {
			return c, true
		}
	}
	return AttributeCategory{}, false
}

// Field resolves an updatable field by JSON name
func (d ResourceDomain) Field(jsonName string) (FieldSpec, bool) {
	for _, f := range commonFields {
		if f.JSON == jsonName {
			return f, true
		}
	}
	for _, f := range d.Fields {
		if f.JSON == jsonName {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// AllFields returns the common and domain-specific updatable fields
func (d ResourceDomain) AllFields() []FieldSpec {
	fields := make([]FieldSpec, 0, len(commonFields)+len(d.Fields))
	fields = append(fields, commonFields...)
	return append(fields, d.Fields...)
}

var commonFields = []FieldSpec{
	{JSON: "name", Column: "name", Kind: ValueText},
	{JSON: "description", Column: "description", Kind: ValueText},
	{JSON: "address", Column: "address", Kind: ValueText},
	{JSON: "postcode", Column: "postcode", Kind: ValueText},
	{JSON: "phone", Column: "phone", Kind: ValueText},
	{JSON: "website", Column: "website", Kind: ValueText},
	{JSON: "latitude", Column: "latitude", Kind: ValueFloat},
	{JSON: "longitude", Column: "longitude", Kind: ValueFloat},
}

var (
	categoryServices      = AttributeCategory{Key: "services", JSON: "services"}
	categoryAccessibility = AttributeCategory{Key: "accessibility_features", JSON: "accessibilityFeatures"}
	categorySpecialties   = AttributeCategory{Key: "specialties", JSON: "specialties"}
	categoryTags          = AttributeCategory{Key: "tags", JSON: "tags"}
	categorySupportNeeds  = AttributeCategory{Key: "support_needs", JSON: "supportNeeds"}

	defaultCategories = []AttributeCategory{categoryServices, categoryAccessibility, categorySpecialties, categoryTags}
)

var (
	healthcareTypes   = []string{"gp", "dentist", "hospital", "pharmacy", "walk_in_centre", "clinic"}
	mentalHealthTypes = []string{"crisis", "counselling", "community", "peer_support", "helpline"}
	substanceFocuses  = []string{"alcohol", "drugs", "gambling", "all"}
	housingTypes      = []string{"emergency_shelter", "night_shelter", "hostel", "supported_housing", "day_centre"}
	serviceDogTypes   = []string{"vet", "trainer", "kennel", "food_bank"}
	courseTypes       = []string{"literacy", "digital", "vocational", "language", "employability"}
	adviceTypes       = []string{"universal_credit", "pip", "housing_benefit", "debt", "general"}
)

func activeOnly() Predicate {
	return Predicate{Field: "is_active", Operator: OpEq, Kind: ValueBool, Value: true}
}

func flag(option, column string) Predicate {
	return Predicate{Option: option, Field: column, Operator: OpEq, Kind: ValueBool, Optional: true}
}

func typeIn(column string, values []string) Predicate {
	return Predicate{Option: "type", Field: column, Operator: OpIn, Kind: ValueEnum, Enum: values, Optional: true}
}

// vocabulary wraps domain predicates with the shared ones
func vocabulary(domain ...Predicate) []Predicate {
	v := []Predicate{activeOnly()}
	v = append(v, domain...)
	return append(v,
		flag("verified", "is_verified"),
		Predicate{Option: "q", Field: "name", Operator: OpLike, Kind: ValueText, Optional: true},
	)
}

var resourceDomains = []ResourceDomain{
	{
		Key: models.DomainHealthcare, Segment: "healthcare", Label: "Healthcare",
		Table: "healthcare_providers", DefaultRadius: 10,
		Vocabulary: vocabulary(
			flag("emergency", "emergency"),
			flag("nhsFunded", "nhs_funded"),
			flag("acceptingNewPatients", "accepting_new_patients"),
			flag("walkin", "accepts_walk_ins"),
			flag("noFixedAddress", "no_fixed_address_ok"),
			typeIn("provider_type", healthcareTypes),
		),
		Fields: []FieldSpec{
			{JSON: "providerType", Column: "provider_type", Kind: ValueEnum, Enum: healthcareTypes},
			{JSON: "nhsFunded", Column: "nhs_funded", Kind: ValueBool},
			{JSON: "acceptingNewPatients", Column: "accepting_new_patients", Kind: ValueBool},
			{JSON: "acceptsWalkIns", Column: "accepts_walk_ins", Kind: ValueBool},
			{JSON: "emergency", Column: "emergency", Kind: ValueBool},
			{JSON: "noFixedAddressOk", Column: "no_fixed_address_ok", Kind: ValueBool},
		},
		Categories: defaultCategories,
	},
	{
		Key: models.DomainMentalHealth, Segment: "mental-health", Label: "Mental health",
		Table: "mental_health_services", DefaultRadius: 10,
		Vocabulary: vocabulary(
			flag("emergency", "emergency"),
			flag("nhsFunded", "nhs_funded"),
			flag("selfReferral", "self_referral"),
			flag("walkin", "accepts_walk_ins"),
			typeIn("service_type", mentalHealthTypes),
		),
		Fields: []FieldSpec{
			{JSON: "serviceType", Column: "service_type", Kind: ValueEnum, Enum: mentalHealthTypes},
			{JSON: "nhsFunded", Column: "nhs_funded", Kind: ValueBool},
			{JSON: "selfReferral", Column: "self_referral", Kind: ValueBool},
			{JSON: "acceptsWalkIns", Column: "accepts_walk_ins", Kind: ValueBool},
			{JSON: "emergency", Column: "emergency", Kind: ValueBool},
		},
		Categories: defaultCategories,
	},
	{
		Key: models.DomainAddiction, Segment: "addiction", Label: "Addiction support",
		Table: "addiction_services", DefaultRadius: 10,
		Vocabulary: vocabulary(
			flag("nhsFunded", "nhs_funded"),
			flag("residential", "residential"),
			flag("harmReduction", "harm_reduction"),
			flag("walkin", "accepts_walk_ins"),
			typeIn("substance_focus", substanceFocuses),
		),
		Fields: []FieldSpec{
			{JSON: "substanceFocus", Column: "substance_focus", Kind: ValueEnum, Enum: substanceFocuses},
			{JSON: "nhsFunded", Column: "nhs_funded", Kind: ValueBool},
			{JSON: "residential", Column: "residential", Kind: ValueBool},
			{JSON: "harmReduction", Column: "harm_reduction", Kind: ValueBool},
			{JSON: "acceptsWalkIns", Column: "accepts_walk_ins", Kind: ValueBool},
		},
		Categories: defaultCategories,
	},
	{
		Key: models.DomainHousing, Segment: "housing", Label: "Housing",
		Table: "housing_resources", DefaultRadius: 5,
		Vocabulary: vocabulary(
			flag("emergency", "emergency"),
			flag("acceptsDogs", "accepts_dogs"),
			flag("acceptsCouples", "accepts_couples"),
			flag("available", "is_available"),
			Predicate{Option: "minBeds", Field: "beds_available", Operator: OpGte, Kind: ValueInt, Optional: true},
			typeIn("housing_type", housingTypes),
		),
		Fields: []FieldSpec{
			{JSON: "housingType", Column: "housing_type", Kind: ValueEnum, Enum: housingTypes},
			{JSON: "emergency", Column: "emergency", Kind: ValueBool},
			{JSON: "acceptsDogs", Column: "accepts_dogs", Kind: ValueBool},
			{JSON: "acceptsCouples", Column: "accepts_couples", Kind: ValueBool},
			{JSON: "isAvailable", Column: "is_available", Kind: ValueBool},
			{JSON: "bedsAvailable", Column: "beds_available", Kind: ValueInt},
			{JSON: "isSensitive", Column: "is_sensitive", Kind: ValueBool, AdminOnly: true},
		},
		Categories: append(append([]AttributeCategory{}, defaultCategories...), categorySupportNeeds),
		RequiresAdmin: func(r models.Resource) bool {
			h, ok := r.(*models.HousingResource)
			return ok && h.IsSensitive
		},
		Restricted: []Predicate{
			{Field: "is_sensitive", Operator: OpEq, Kind: ValueBool, Value: false},
		},
	},
	{
		Key: models.DomainServiceDog, Segment: "service-dogs", Label: "Service dogs",
		Table: "service_dog_providers", DefaultRadius: 10,
		Vocabulary: vocabulary(
			flag("emergency", "emergency"),
			flag("free", "free_of_charge"),
			flag("walkin", "accepts_walk_ins"),
			typeIn("provider_type", serviceDogTypes),
		),
		Fields: []FieldSpec{
			{JSON: "providerType", Column: "provider_type", Kind: ValueEnum, Enum: serviceDogTypes},
			{JSON: "freeOfCharge", Column: "free_of_charge", Kind: ValueBool},
			{JSON: "emergency", Column: "emergency", Kind: ValueBool},
			{JSON: "acceptsWalkIns", Column: "accepts_walk_ins", Kind: ValueBool},
		},
		Categories: defaultCategories,
	},
	{
		Key: models.DomainEducation, Segment: "education", Label: "Education",
		Table: "education_providers", DefaultRadius: 10,
		Vocabulary: vocabulary(
			flag("free", "free_of_charge"),
			flag("accredited", "accredited"),
			flag("online", "online"),
			typeIn("course_type", courseTypes),
		),
		Fields: []FieldSpec{
			{JSON: "courseType", Column: "course_type", Kind: ValueEnum, Enum: courseTypes},
			{JSON: "freeOfCharge", Column: "free_of_charge", Kind: ValueBool},
			{JSON: "accredited", Column: "accredited", Kind: ValueBool},
			{JSON: "online", Column: "online", Kind: ValueBool},
		},
		Categories: defaultCategories,
	},
	{
		Key: models.DomainBenefits, Segment: "benefits", Label: "Benefits advice",
		Table: "benefit_advisors", DefaultRadius: 10,
		Vocabulary: vocabulary(
			flag("free", "free_of_charge"),
			flag("walkin", "accepts_walk_ins"),
			flag("appointments", "offers_appointments"),
			typeIn("advice_type", adviceTypes),
		),
		Fields: []FieldSpec{
			{JSON: "adviceType", Column: "advice_type", Kind: ValueEnum, Enum: adviceTypes},
			{JSON: "freeOfCharge", Column: "free_of_charge", Kind: ValueBool},
			{JSON: "acceptsWalkIns", Column: "accepts_walk_ins", Kind: ValueBool},
			{JSON: "offersAppointments", Column: "offers_appointments", Kind: ValueBool},
		},
		Categories: defaultCategories,
	},
}

// Domains returns every registered resource domain
func Domains() []ResourceDomain {
	out := make([]ResourceDomain, len(resourceDomains))
	copy(out, resourceDomains)
	return out
}

// DomainBySegment resolves a domain from its route segment
func DomainBySegment(segment string) (ResourceDomain, bool) {
	for _, d := range resourceDomains {
		if d.Segment == segment {
			return d, true
		}
	}
	return ResourceDomain{}, false
}

// DomainByKey resolves a domain from its key
func DomainByKey(key string) (ResourceDomain, bool) {
	for _, d := range resourceDomains {
		if d.Key == key {
			return d, true
		}
	}
	return ResourceDomain{}, false
}

// resourceState flattens a resource to its JSON field map for notification
// rules and activity log snapshots
func resourceState(r models.Resource) State {
	state := State{}
	raw, err := json.Marshal(r)
	if err != nil {
		return state
	}
	_ = json.Unmarshal(raw, &state)
	delete(state, "distance")
	return state
}

// groupAttributes fills ResourceBase.Attributes from the preloaded rows,
// keyed by category JSON name in sort order
func groupAttributes(d ResourceDomain, r models.Resource) {
	rows := append([]models.ResourceAttribute(nil), r.AttributeRows()...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].SortOrder < rows[j].SortOrder
	})

	grouped := make(map[string][]string)
	for _, row := range rows {
		name := row.Category
		if c, ok := d.Category(row.Category); ok {
			name = c.JSON
		}
		grouped[name] = append(grouped[name], row.Value)
	}
	if len(grouped) == 0 {
		grouped = nil
	}
	r.Base().Attributes = grouped
}
