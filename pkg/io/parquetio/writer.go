// Package parquetio writes prepared datasets as Parquet via the parquet-go
// JSONWriter. Scalar columns map to primitive types, sequence columns to
// LIST fields.
package parquetio

import (
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/prepline/prepline/pkg/features"
)

type schemaField struct {
	Tag    string        `json:"Tag"`
	Fields []schemaField `json:"Fields,omitempty"`
}

func fieldTag(name string, f features.Feature) (schemaField, error) {
	switch t := f.(type) {
	case features.Value:
		tag := "name=" + name + ", repetitiontype=OPTIONAL, type="
		switch t.Kind {
		case features.KindFloat:
			tag += "DOUBLE"
		case features.KindInt:
			tag += "INT64"
		case features.KindBool:
			tag += "BOOLEAN"
		case features.KindString:
			tag += "BYTE_ARRAY, convertedtype=UTF8"
		default:
			return schemaField{}, fmt.Errorf("column %q: unsupported kind %s", name, t.Kind)
		}
		return schemaField{Tag: tag}, nil
	case features.ClassLabel:
		return schemaField{Tag: "name=" + name + ", repetitiontype=OPTIONAL, type=INT64"}, nil
	case features.Sequence:
		elem, err := fieldTag("element", t.Of)
		if err != nil {
			return schemaField{}, fmt.Errorf("column %q: %w", name, err)
		}
		return schemaField{
			Tag:    "name=" + name + ", type=LIST, repetitiontype=OPTIONAL",
			Fields: []schemaField{elem},
		}, nil
	default:
		return schemaField{}, fmt.Errorf("column %q: unsupported feature %s", name, f)
	}
}

func schemaJSON(feats features.Features) (string, error) {
	root := schemaField{Tag: "name=schema, repetitiontype=REQUIRED"}
	for _, name := range feats.Columns() {
		f, err := fieldTag(name, feats[name])
		if err != nil {
			return "", err
		}
		root.Fields = append(root.Fields, f)
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteAll writes all records to a Parquet file at path.
func WriteAll(path string, feats features.Features, recs []features.Record) error {
	schema, err := schemaJSON(feats)
	if err != nil {
		return err
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	w, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		fw.Close()
		return fmt.Errorf("parquet writer init: %w", err)
	}
	for _, rec := range recs {
		b, err := json.Marshal(rec)
		if err != nil {
			w.WriteStop()
			fw.Close()
			return err
		}
		if err := w.Write(string(b)); err != nil {
			w.WriteStop()
			fw.Close()
			return fmt.Errorf("parquet write row: %w", err)
		}
	}
	if err := w.WriteStop(); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
