package domain

import "testing"

func TestTestNode_CountTests(t *testing.T) {
	node := &TestNode{
		Kind: NodeKindNamespace,
		Name: `App\Tests`,
		Children: []*TestNode{
			{
				Kind: NodeKindClass,
				Name: "AdditionTest",
				Children: []*TestNode{
					{Kind: NodeKindMethod, Name: "testAdd"},
					{Kind: NodeKindMethod, Name: "testAddNegative"},
				},
			},
		},
	}

	if got := node.CountTests(); got != 2 {
		t.Errorf("expected 2 tests, got %d", got)
	}

	file := TestFile{Path: "/ws/tests/AdditionTest.php", Nodes: []*TestNode{node}}
	inv := Inventory{Files: []TestFile{file, file}}
	if got := inv.CountTests(); got != 4 {
		t.Errorf("expected 4 tests, got %d", got)
	}
}

func TestTestNode_HasTag(t *testing.T) {
	node := &TestNode{Kind: NodeKindMethod, Name: "customCheck", Tags: []string{TagTestAnnotation}}

	if !node.HasTag(TagTestAnnotation) {
		t.Error("expected @test tag")
	}
	if node.HasTag("@group") {
		t.Error("unexpected @group tag")
	}
}

func TestRange_Contains(t *testing.T) {
	r := Range{StartLine: 3, EndLine: 7}

	tests := []struct {
		line int
		want bool
	}{
		{2, false},
		{3, true},
		{5, true},
		{7, true},
		{8, false},
	}

	for _, tt := range tests {
		if got := r.Contains(tt.line); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestOutcome_HasDiff(t *testing.T) {
	if (Outcome{Status: RunStatusFailed, Message: "boom"}).HasDiff() {
		t.Error("expected no diff")
	}
	if !(Outcome{Status: RunStatusFailed, Expected: "10", Actual: "8"}).HasDiff() {
		t.Error("expected diff")
	}
}
