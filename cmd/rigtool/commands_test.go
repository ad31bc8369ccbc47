package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/phanxgames/rig"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestInspect(t *testing.T) {
	out, _, err := run(t, "inspect", "testdata/arm.yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Bone:hand",
		"global=(1, 5, 0)",
		"Control:hand_ik",
		"global=(1, 5, 1)",
		"value=0.5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// parents come before children
	if strings.Index(out, "Bone:shoulder") > strings.Index(out, "Bone:hand") {
		t.Errorf("not in topological order:\n%s", out)
	}
}

func TestInspectJSON(t *testing.T) {
	out, _, err := run(t, "inspect", "--json", "testdata/arm.yaml")
	if err != nil {
		t.Fatal(err)
	}
	var reports []elementReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(reports) != 5 {
		t.Errorf("got %d elements, want 5", len(reports))
	}
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, "validate", "--config", "testdata/config.yaml", "testdata/arm.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ok: 5 elements") {
		t.Errorf("output = %q", out)
	}
}

func TestValidateMissingFile(t *testing.T) {
	if _, _, err := run(t, "validate", "testdata/nope.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}

func TestEval(t *testing.T) {
	out, stderr, err := run(t, "eval", "testdata/arm.yaml", "--space", "global", "--set", "Bone:shoulder=10,0,0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "global=(10, 5, 0)") {
		t.Errorf("hand did not follow the shoulder:\n%s", out)
	}
	if !strings.Contains(stderr, "recomputes=") {
		t.Errorf("stats missing: %q", stderr)
	}
}

func TestEvalKeepChildren(t *testing.T) {
	out, _, err := run(t, "eval", "testdata/arm.yaml", "--keep-children", "--set", "Bone:shoulder=10,0,0")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "global=(1, 5, 0)") {
		t.Errorf("hand moved with --keep-children:\n%s", out)
	}
}

func TestEvalUnknownKey(t *testing.T) {
	_, _, err := run(t, "eval", "testdata/arm.yaml", "--set", "Bone:tail=1,2,3")
	if !errors.Is(err, rig.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestParseAssignment(t *testing.T) {
	a, err := parseAssignment("Control:hand_ik=1, 2.5,-3")
	if err != nil {
		t.Fatal(err)
	}
	if a.key != rig.NewKey(rig.KindControl, "hand_ik") || a.v[1] != 2.5 || a.v[2] != -3 {
		t.Errorf("assignment = %+v", a)
	}
	for _, bad := range []string{"Bone:a", "Bone:a=1,2", "Bone:a=1,x,3", "Wing:a=1,2,3"} {
		if _, err := parseAssignment(bad); err == nil {
			t.Errorf("parseAssignment(%q) succeeded", bad)
		}
	}
}

func TestDumpRoundTrip(t *testing.T) {
	out, _, err := run(t, "dump", "testdata/arm.yaml")
	if err != nil {
		t.Fatal(err)
	}
	h, err := rig.LoadHierarchy([]byte(out), rig.DefaultConfig())
	if err != nil {
		t.Fatalf("dump does not reload: %v\n%s", err, out)
	}
	g, _ := h.GetTransform(rig.NewKey(rig.KindBone, "hand"), rig.Global, rig.Current)
	if !g.Equal(rig.Translate(1, 5, 0), 1e-6) {
		t.Errorf("hand = %+v", g)
	}
}
