package command

import (
	"encoding/json"
	"testing"

	"github.com/dop251/goja"
)

// runScript evaluates a page script in an embedded JS runtime after setup
// has prepared window, and returns the result as JSON, the way the browser
// session hands it back.
func runScript(t *testing.T, setup, script string) string {
	t.Helper()
	return runScriptOn(t, setup, "", script)
}

// runScriptOn is runScript with this bound to the value of thisExpr, as for
// scripts evaluated on an element.
func runScriptOn(t *testing.T, setup, thisExpr, script string) string {
	t.Helper()
	vm := goja.New()
	if _, err := vm.RunString("var window = this;\n" + setup); err != nil {
		t.Fatalf("setup: %v", err)
	}
	// Wrapped like the browser session wraps page scripts, so arrow
	// functions see the bound this.
	v, err := vm.RunString("(function() { return (" + script + ").apply(this, arguments) })")
	if err != nil {
		t.Fatalf("compile script: %v", err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		t.Fatal("script is not a function expression")
	}
	this := goja.Undefined()
	if thisExpr != "" {
		if this, err = vm.RunString("(" + thisExpr + ")"); err != nil {
			t.Fatalf("this: %v", err)
		}
	}
	res, err := fn(this)
	if err != nil {
		t.Fatalf("run script: %v", err)
	}
	out, err := json.Marshal(res.Export())
	if err != nil {
		t.Fatalf("encode result: %v", err)
	}
	return string(out)
}
