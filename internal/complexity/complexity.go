// Package complexity scores cyclomatic complexity for JavaScript and
// TypeScript source and compares scores against prior revisions.
//
// Each occurrence of a decision point adds exactly one, regardless of
// nesting depth: if/ternary, every loop form, each case/default clause,
// each catch clause, and each short-circuit logical operator (&&, ||,
// ??). The base complexity of any function or method is 1. A class
// scores the maximum of its direct methods, never their sum.
package complexity

// UnitKind identifies the kind of a scored unit.
type UnitKind string

const (
	KindFunction UnitKind = "function"
	KindMethod   UnitKind = "method"
	KindClass    UnitKind = "class"
	KindModule   UnitKind = "module"
)

// Record is the scored result for one unit. Classes carry their direct
// methods as children; nested functions are children of their
// enclosing unit.
type Record struct {
	Name     string   `json:"name"`
	Kind     UnitKind `json:"kind"`
	Score    int      `json:"score"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Children []Record `json:"children,omitempty"`
}

// Analyze parses the source and returns the top-level scored units in
// source order. Loose top-level code accrues to an implicit module
// record, which is included only when it carries decision points.
func Analyze(source string) []Record {
	arena := parse(scan(source))

	var records []Record
	for _, childIdx := range arena[0].children {
		records = append(records, buildRecord(arena, childIdx))
	}

	// Module-level decision points (top-level ifs, loops) surface as a
	// module record so they are not silently lost.
	if arena[0].score > 1 {
		module := buildRecord(arena, 0)
		module.Children = nil
		records = append(records, module)
	}

	return records
}

func buildRecord(arena []unit, idx int) Record {
	u := arena[idx]
	rec := Record{
		Name:   u.name,
		Kind:   u.kind,
		Score:  u.score,
		Line:   u.line,
		Column: u.col,
	}
	for _, childIdx := range u.children {
		rec.Children = append(rec.Children, buildRecord(arena, childIdx))
	}
	return rec
}

// FileTotal sums the top-level unit scores: plain units contribute
// their score and each class contributes its already-computed method
// maximum. Module records are presentation-only and excluded.
func FileTotal(records []Record) int {
	total := 0
	for _, rec := range records {
		if rec.Kind == KindModule {
			continue
		}
		total += rec.Score
	}
	return total
}

// Level classifies a score against configured thresholds.
type Level string

const (
	LevelNormal    Level = "normal"
	LevelWarning   Level = "warning"
	LevelViolation Level = "violation"
)

// Classify buckets a score: below warn is normal, [warn, err) is a
// warning, and at or above err is a violation.
func Classify(score, warnThreshold, errThreshold int) Level {
	switch {
	case score >= errThreshold:
		return LevelViolation
	case score >= warnThreshold:
		return LevelWarning
	default:
		return LevelNormal
	}
}
