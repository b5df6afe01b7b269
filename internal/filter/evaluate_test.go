package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikunja-tools/vikunja-mcp/internal/vikunja"
)

func taskWithLabels(ids ...int64) *vikunja.Task {
	task := &vikunja.Task{ID: 1, Title: "labelled"}
	for _, id := range ids {
		task.Labels = append(task.Labels, vikunja.Label{ID: id})
	}
	return task
}

func TestEvaluatePriorityAndDone(t *testing.T) {
	expr := mustParse(t, "priority >= 3 && done = false")

	tasks := []*vikunja.Task{
		{ID: 1, Priority: 4, Done: false},
		{ID: 2, Priority: 2, Done: false},
		{ID: 3, Priority: 5, Done: true},
	}

	var matched []int64
	for _, task := range tasks {
		if Evaluate(expr, task) {
			matched = append(matched, task.ID)
		}
	}
	assert.Equal(t, []int64{1}, matched)
}

func TestEvaluateLabelMembership(t *testing.T) {
	expr := mustParse(t, "labels in (1,2)")

	assert.True(t, Evaluate(expr, taskWithLabels(2, 9)), "non-empty intersection matches")
	assert.False(t, Evaluate(expr, taskWithLabels(5)))
	assert.False(t, Evaluate(expr, taskWithLabels()), "task without labels fails closed")
}

func TestEvaluateNotIn(t *testing.T) {
	expr := mustParse(t, "labels not in (1, 2)")

	assert.True(t, Evaluate(expr, taskWithLabels(5)))
	assert.False(t, Evaluate(expr, taskWithLabels(2, 9)))
	// Fail-closed: an absent field is false even for the negated operator.
	assert.False(t, Evaluate(expr, taskWithLabels()))
}

func TestEvaluateAssignees(t *testing.T) {
	expr := mustParse(t, "assignees in (7)")

	task := &vikunja.Task{Assignees: []vikunja.User{{ID: 7, Username: "grace"}}}
	assert.True(t, Evaluate(expr, task))
	assert.False(t, Evaluate(expr, &vikunja.Task{}))
}

func TestEvaluateDates(t *testing.T) {
	due := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	task := &vikunja.Task{DueDate: due}

	assert.True(t, Evaluate(mustParse(t, "dueDate < 2024-06-01"), task))
	assert.False(t, Evaluate(mustParse(t, "dueDate < 2024-05-01"), task))
	assert.True(t, Evaluate(mustParse(t, "dueDate >= 2024-05-10T12:00:00Z"), task))

	// Zero due date means the field is absent on the record.
	noDue := &vikunja.Task{}
	assert.False(t, Evaluate(mustParse(t, "dueDate < 2024-06-01"), noDue))
	assert.False(t, Evaluate(mustParse(t, "dueDate > 2020-01-01"), noDue))
}

func TestEvaluateLikeIsCaseInsensitiveSubstring(t *testing.T) {
	task := &vikunja.Task{Title: "Quarterly Review Meeting"}

	assert.True(t, Evaluate(mustParse(t, "title like review"), task))
	assert.True(t, Evaluate(mustParse(t, `title like "quarterly review"`), task))
	assert.False(t, Evaluate(mustParse(t, "title like retro"), task))
}

func TestEvaluateStringEquality(t *testing.T) {
	task := &vikunja.Task{Title: "Standup"}

	assert.True(t, Evaluate(mustParse(t, "title = Standup"), task))
	assert.False(t, Evaluate(mustParse(t, "title = standup"), task), "equality is exact, unlike like")
	assert.True(t, Evaluate(mustParse(t, "title != retro"), task))
}

func TestEvaluateCoercions(t *testing.T) {
	task := &vikunja.Task{Done: true, Priority: 4}

	assert.True(t, Evaluate(mustParse(t, `done = "true"`), task))
	assert.True(t, Evaluate(mustParse(t, `priority = "4"`), task))
}

func TestEvaluateTypeMismatchFailsClosed(t *testing.T) {
	task := &vikunja.Task{Done: true, Priority: 4, Title: "x"}

	// These would be validation errors; evaluation must still not panic and
	// must simply not match.
	assert.False(t, Evaluate(&Condition{Field: FieldPriority, Op: OpEquals, Value: StringValue("abc")}, task))
	assert.False(t, Evaluate(&Condition{Field: FieldDone, Op: OpGreater, Value: BoolValue(true)}, task))
	assert.False(t, Evaluate(&Condition{Field: FieldTitle, Op: OpGreater, Value: StringValue("a")}, task))
	assert.False(t, Evaluate(&Condition{Field: FieldDueDate, Op: OpLess, Value: NumberValue(5)}, task))
}

func TestEvaluateNilInputs(t *testing.T) {
	assert.False(t, Evaluate(mustParse(t, "done = true"), nil))
	assert.False(t, Evaluate(nil, &vikunja.Task{}))
}

func TestEvaluateShortCircuit(t *testing.T) {
	task := &vikunja.Task{Done: true, Priority: 2}

	falseLeaf := &Condition{Field: FieldDone, Op: OpEquals, Value: BoolValue(false)}
	trueLeaf := &Condition{Field: FieldDone, Op: OpEquals, Value: BoolValue(true)}

	rights := []Expr{
		trueLeaf,
		falseLeaf,
		&Condition{Field: FieldPriority, Op: OpGreater, Value: NumberValue(1)},
		&Condition{Field: FieldPriority, Op: OpEquals, Value: StringValue("garbage")},
	}

	// Once the left operand determines the result, no right operand may
	// change it.
	for _, right := range rights {
		and := &Binary{Combinator: CombinatorAnd, Left: falseLeaf, Right: right}
		require.False(t, Evaluate(and, task))

		or := &Binary{Combinator: CombinatorOr, Left: trueLeaf, Right: right}
		require.True(t, Evaluate(or, task))
	}
}

func TestEvaluatePercentDone(t *testing.T) {
	task := &vikunja.Task{PercentDone: 60}

	assert.True(t, Evaluate(mustParse(t, "percentDone >= 50"), task))
	assert.False(t, Evaluate(mustParse(t, "percentDone = 100"), task))
}
