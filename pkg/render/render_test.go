package render

import (
	"strings"
	"testing"

	"github.com/prepline/prepline/pkg/features"
)

func TestRenderItemAndIndex(t *testing.T) {
	tpl, err := Compile("{{ index }}: {{ item.text }}")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tpl.Render(features.Record{"text": "hello"}, features.Features{"text": features.Str()}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if out != "3: hello" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderConditionalAndJoin(t *testing.T) {
	tpl, err := Compile(`{% if item.label == 1 %}pos{% else %}neg{% endif %} [{{ features.label.names|join:", " }}]`)
	if err != nil {
		t.Fatal(err)
	}
	feats := features.Features{"label": features.ClassLabel{Names: []string{"neg", "pos"}}}
	out, err := tpl.Render(features.Record{"label": int64(1)}, feats, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out != "pos [neg, pos]" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderLoop(t *testing.T) {
	tpl, err := Compile(`{% for w in item.words %}{{ w }} {% endfor %}`)
	if err != nil {
		t.Fatal(err)
	}
	out, err := tpl.Render(
		features.Record{"words": []string{"a", "b", "c"}},
		features.Features{"words": features.Seq(features.Str())},
		0,
	)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "a b c" {
		t.Fatalf("got %q", out)
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("{% if %}"); err == nil {
		t.Fatal("expected parse error for malformed template")
	}
}

func TestCompileRejectsUndefinedName(t *testing.T) {
	if _, err := Compile("{{ totally_undefined }}"); err == nil {
		t.Fatal("expected error for undefined name")
	}
	if _, err := Compile("{% if nope %}x{% endif %}"); err == nil {
		t.Fatal("expected error for undefined name in tag")
	}
}

func TestColumns(t *testing.T) {
	tpl, err := Compile(`{{ item.text }} {% if item.label == 1 %}{{ features.label.names|join:"/" }}{% endif %}`)
	if err != nil {
		t.Fatal(err)
	}
	cols := tpl.Columns()
	if len(cols) != 2 || cols[0] != "label" || cols[1] != "text" {
		t.Fatalf("columns: %v", cols)
	}
}

func TestRenderMissingColumnErrors(t *testing.T) {
	tpl, err := Compile("{{ item.nope }}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tpl.Render(features.Record{"text": "hello"}, features.Features{"text": features.Str()}, 0); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestSetVariableIsBound(t *testing.T) {
	tpl, err := Compile(`{% set sep = ", " %}{{ item.words|join:sep }}`)
	if err != nil {
		t.Fatal(err)
	}
	if cols := tpl.Columns(); len(cols) != 1 || cols[0] != "words" {
		t.Fatalf("columns: %v", cols)
	}
}

func TestLoopVariableIsBound(t *testing.T) {
	tpl, err := Compile(`{% for k, v in item.pairs %}{{ k }}={{ v }} {% endfor %}`)
	if err != nil {
		t.Fatal(err)
	}
	if cols := tpl.Columns(); len(cols) != 1 || cols[0] != "pairs" {
		t.Fatalf("columns: %v", cols)
	}
}
