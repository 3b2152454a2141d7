package testutil

import "testing"

// Given, When, Then and And nest scenario steps as subtests named after the step.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Then", desc, fn)
}

// And continues the previous step; a failed And stops the enclosing scenario.
func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	if !step(t, "And", desc, fn) {
		t.FailNow()
	}
	return true
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(keyword+" "+desc, fn)
}
