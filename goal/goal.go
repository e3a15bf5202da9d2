// Package goal defines the immutable unit of work a run is driven by.
// A Goal is created once at run intake and never mutated;
// everything downstream (planning, execution, memory) treats it as a
// read-only value.
package goal

// Category classifies the kind of change a Goal asks for.
type Category string

const (
	CategoryFix      Category = "fix"
	CategoryTest     Category = "test"
	CategoryFeature  Category = "feature"
	CategoryDocument Category = "document"
)

// Complexity is a coarse size estimate used by spawn heuristics and
// scope-tracker budgets.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// FileHint is a planned file-change hint supplied at intake (e.g. from a
// user-provided file list or a prior briefing).
type FileHint struct {
	Path   string
	Reason string
}

// Goal is immutable once created.
type Goal struct {
	ID          string
	Description string
	Category    Category
	Complexity  Complexity
	Lens        string
	FileHints   []FileHint
}

// Hash derives a stable identifier used to key plan versions and
// checkpoints under .sunwell/plans/<goal_hash>.json.
// Deliberately excludes ID: a resumed or re-planned run constructs a
// fresh Goal with a new random ID for the same logical goal, and both
// the resume check and plan versioning key on the hash, so the same
// logical goal must hash identically across separate runs.
func (g Goal) Hash() string {
	return hashGoal(g.Description, string(g.Category))
}
