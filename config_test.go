package rig

import "testing"

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug not decoded")
	}
	def := DefaultConfig()
	if cfg.WeightEpsilon != def.WeightEpsilon || cfg.NormalizeRotations != def.NormalizeRotations {
		t.Errorf("omitted fields lost their defaults: %+v", cfg)
	}
}

func TestParseConfigScaleBlend(t *testing.T) {
	cfg, err := ParseConfig([]byte("scale_blend: log\nweight_epsilon: 0.001\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScaleBlend != ScaleBlendLog || cfg.WeightEpsilon != 0.001 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParseConfigJSON(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"normalize_rotations": false}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NormalizeRotations {
		t.Error("normalize_rotations not decoded")
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, in := range []string{
		"scale_blend: cubic\n",
		"weight_epsilon: 0\n",
		"debug: [\n",
	} {
		if _, err := ParseConfig([]byte(in)); err == nil {
			t.Errorf("ParseConfig(%q) succeeded", in)
		}
	}
}

func TestWeightEpsilonIgnoresTinyWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeightEpsilon = 0.01
	h := NewHierarchyWithConfig(cfg)
	h.MustCreateElement(KindBone, "a")
	h.MustCreateElement(KindBone, "b")
	h.MustCreateElement(KindNull, "n")
	h.SetTransform(bone("a"), Global, Current, Translate(1, 0, 0))
	h.SetTransform(bone("b"), Global, Current, Translate(0, 1, 0))
	_ = h.AddParent(null("n"), bone("a"), UniformWeight(1))
	_ = h.AddParent(null("n"), bone("b"), UniformWeight(0.005))

	assertTransform(t, "global", global(t, h, null("n")), Translate(1, 0, 0))
}

func TestNewHierarchyWithZeroEpsilon(t *testing.T) {
	h := NewHierarchyWithConfig(Config{})
	if h.Config().WeightEpsilon <= 0 {
		t.Error("non-positive epsilon kept")
	}
}
