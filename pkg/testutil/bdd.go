package testutil

import "testing"

type step string

func (s step) run(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(string(s)+" "+desc, fn)
}

// Given, When and Then nest subtests under scenario-step names so a failure
// reads as "Given x/When y/Then z".
func Given(t *testing.T, desc string, fn func(t *testing.T)) { step("Given").run(t, desc, fn) }
func When(t *testing.T, desc string, fn func(t *testing.T))  { step("When").run(t, desc, fn) }
func Then(t *testing.T, desc string, fn func(t *testing.T))  { step("Then").run(t, desc, fn) }
