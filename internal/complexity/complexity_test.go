package complexity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSimpleFunction(t *testing.T) {
	source := `
function f(a, b, c) {
  if (a && b) {
  } else if (c) {
  }
  for (;;) {}
}
`
	records := Analyze(source)
	require.Len(t, records, 1)

	// Base 1 + if + && + else-if + for.
	assert.Equal(t, "f", records[0].Name)
	assert.Equal(t, KindFunction, records[0].Kind)
	assert.Equal(t, 5, records[0].Score)
	assert.Equal(t, 5, FileTotal(records))
}

func TestAnalyzeEmptySource(t *testing.T) {
	assert.Empty(t, Analyze(""))
	assert.Empty(t, Analyze("// just a comment\n"))
}

func TestClassScoresMaxOfMethods(t *testing.T) {
	source := `
class Router {
  resolve(path) {
    if (!path) { return null; }
    if (path === here) { return home; }
    return this.lookup(path);
  }
  dispatch(req) {
    if (!req) { return; }
    for (const m of this.middleware) {
      if (m.enabled && m.matches(req)) {
        m.apply(req);
      }
    }
    try {
      this.handle(req);
    } catch (err) {
      this.fail(err);
    }
    while (req.pending) {
      req.flush();
    }
  }
  reset() {
    if (this.cache) { this.cache.clear(); }
  }
}
`
	records := Analyze(source)
	require.Len(t, records, 1)

	cls := records[0]
	assert.Equal(t, "Router", cls.Name)
	assert.Equal(t, KindClass, cls.Kind)
	require.Len(t, cls.Children, 3)

	byName := map[string]Record{}
	for _, m := range cls.Children {
		assert.Equal(t, KindMethod, m.Kind)
		byName[m.Name] = m
	}
	assert.Equal(t, 3, byName["resolve"].Score)
	assert.Equal(t, 7, byName["dispatch"].Score)
	assert.Equal(t, 2, byName["reset"].Score)

	// Class score is the max of its methods, never the sum.
	assert.Equal(t, 7, cls.Score)
	assert.Equal(t, 7, FileTotal(records))
}

func TestClassWithoutMethodsScoresOne(t *testing.T) {
	records := Analyze(`class Empty {}`)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Score)
}

func TestSwitchCases(t *testing.T) {
	source := `
function route(kind) {
  switch (kind) {
    case first: return 1;
    case second: return 2;
    default: return 3;
  }
}
`
	records := Analyze(source)
	require.Len(t, records, 1)
	// Base 1 + two cases + default.
	assert.Equal(t, 4, records[0].Score)
}

func TestArrowFunctions(t *testing.T) {
	source := `
const add = (a, b) => a + b;
const pick = (x) => x ? x.value : null;
const load = async (id) => {
  const res = await fetch(id);
  if (!res.ok) { throw new Error("bad"); }
  return res.json();
};
`
	records := Analyze(source)
	require.Len(t, records, 3)

	byName := map[string]Record{}
	for _, r := range records {
		byName[r.Name] = r
	}
	assert.Equal(t, 1, byName["add"].Score)
	assert.Equal(t, 2, byName["pick"].Score)
	assert.Equal(t, 2, byName["load"].Score)
	assert.Equal(t, 5, FileTotal(records))
}

func TestTernaryWithStringBranches(t *testing.T) {
	records := Analyze(`const label = (n) => n > 0 ? "pos" : "other";`)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Score)
}

func TestOptionalMarkersAreNotTernaries(t *testing.T) {
	source := `
interface Opts { name?: string; }
function get(o: Opts) { return o.name ?? fallback; }
`
	records := Analyze(source)
	require.Len(t, records, 1)
	// Base 1 + the nullish coalescing operator; "name?:" adds nothing.
	assert.Equal(t, "get", records[0].Name)
	assert.Equal(t, 2, records[0].Score)
}

func TestNestedFunctionOwnsItsDecisions(t *testing.T) {
	source := `
function outer() {
  function inner(x) {
    if (x) { return 1; }
    return 0;
  }
  return inner(1) || fallback;
}
`
	records := Analyze(source)
	require.Len(t, records, 1)

	outer := records[0]
	assert.Equal(t, "outer", outer.Name)
	assert.Equal(t, 2, outer.Score)

	require.Len(t, outer.Children, 1)
	assert.Equal(t, "inner", outer.Children[0].Name)
	assert.Equal(t, 2, outer.Children[0].Score)

	// Nested units are not double-counted at the file level.
	assert.Equal(t, 2, FileTotal(records))
}

func TestStringsCommentsAndRegexesDoNotCount(t *testing.T) {
	source := `
function clean(s) {
  // if (x) && noise
  /* for while case */
  const re = /if|for|\?/g;
  return s.replace(re, "&& ||");
}
`
	records := Analyze(source)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Score)
}

func TestTemplateInterpolationCounts(t *testing.T) {
	source := "function fmt(user) {\n  return `Hello ${user.admin ? \"boss\" : user.name} && welcome`;\n}\n"
	records := Analyze(source)
	require.Len(t, records, 1)
	// The ternary inside ${} counts; the literal "&&" text does not.
	assert.Equal(t, 2, records[0].Score)
}

func TestModuleLevelDecisions(t *testing.T) {
	source := `
if (flag) { setup(); }
for (const x of xs) { x.enabled && x.init(); }
`
	records := Analyze(source)
	require.Len(t, records, 1)

	module := records[0]
	assert.Equal(t, KindModule, module.Kind)
	assert.Equal(t, 4, module.Score)

	// Module records are presentation-only.
	assert.Equal(t, 0, FileTotal(records))
}

func TestAnalyzeTruncatedSource(t *testing.T) {
	// Unbalanced braces must still finalize open units.
	records := Analyze(`class Broken { run() { if (x) {`)
	require.Len(t, records, 1)
	assert.Equal(t, "Broken", records[0].Name)
	assert.Equal(t, 2, records[0].Score)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score    int
		expected Level
	}{
		{score: 1, expected: LevelNormal},
		{score: 9, expected: LevelNormal},
		{score: 10, expected: LevelWarning},
		{score: 19, expected: LevelWarning},
		{score: 20, expected: LevelViolation},
		{score: 35, expected: LevelViolation},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.score, 10, 20))
		})
	}
}

type fakeRevisions struct {
	content string
	err     error
}

func (f *fakeRevisions) ShowFileAt(context.Context, string, string) (string, error) {
	return f.content, f.err
}

func TestCompare(t *testing.T) {
	current := `
function f(a, b, c) {
  if (a && b) {
  } else if (c) {
  }
  for (;;) {}
}
`
	reader := &fakeRevisions{content: `function f() {}`}
	cmp := Compare(context.Background(), reader, "src/f.ts", current)
	require.NotNil(t, cmp)

	assert.Equal(t, "src/f.ts", cmp.Path)
	assert.Equal(t, 1, cmp.Previous)
	assert.Equal(t, 5, cmp.Current)
	assert.Equal(t, 4, cmp.Delta)
	assert.InDelta(t, 400.0, cmp.PercentDelta, 0.001)
	assert.True(t, cmp.Increased)
}

func TestCompareUnavailable(t *testing.T) {
	assert.Nil(t, Compare(context.Background(), nil, "src/f.ts", "function f() {}"))

	reader := &fakeRevisions{err: fmt.Errorf("path not in HEAD")}
	assert.Nil(t, Compare(context.Background(), reader, "src/new.ts", "function f() {}"))
}
