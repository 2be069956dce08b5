package parquetio

import (
	"strings"
	"testing"

	"github.com/prepline/prepline/pkg/features"
)

func TestSchemaJSON(t *testing.T) {
	feats := features.Features{
		"input_ids": features.Seq(features.Int()),
		"label":     features.ClassLabel{Names: []string{"neg", "pos"}},
		"text":      features.Str(),
		"score":     features.Float(),
	}
	s, err := schemaJSON(feats)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"name=input_ids, type=LIST",
		"name=element, repetitiontype=OPTIONAL, type=INT64",
		"name=label, repetitiontype=OPTIONAL, type=INT64",
		"convertedtype=UTF8",
		"name=score, repetitiontype=OPTIONAL, type=DOUBLE",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("schema %s missing %q", s, want)
		}
	}
}

func TestSchemaJSONRejectsStructs(t *testing.T) {
	feats := features.Features{
		"span": features.Struct{"begin": features.Int()},
	}
	if _, err := schemaJSON(feats); err == nil {
		t.Fatal("expected error for struct column")
	}
}
