package importctx_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/importctx"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

func TestExtract(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want importctx.Context
	}{
		{
			name: "full envelope",
			raw: `{"CsireMessageId":"m-1","ProcessType":"CHG.01.02",
				"Body":{"MeteringPointData":{"MeteringPointCode":"590543000000000019"}}}`,
			want: importctx.Context{MessageID: "m-1", BusinessProcess: "CHG.01.", MeteringPointCode: "590543000000000019"},
		},
		{
			name: "short process type",
			raw:  `{"CsireMessageId":"m-2","ProcessType":"CHG"}`,
			want: importctx.Context{MessageID: "m-2"},
		},
		{
			name: "non string process type",
			raw:  `{"ProcessType":12,"Body":{"MeteringPointData":{"MeteringPointCode":42}}}`,
			want: importctx.Context{MeteringPointCode: "42"},
		},
		{
			name: "empty object",
			raw:  `{}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := importctx.Extract([]byte(tc.raw), importctx.WithLogger(testsupport.Logger()))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("context mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	t.Parallel()
	logger := importctx.WithLogger(testsupport.Logger())
	if _, err := importctx.Extract([]byte(`{"payload":"PD94bWw+"}`), logger); !errors.Is(err, importctx.ErrMarkupPayload) {
		t.Fatalf("expected ErrMarkupPayload, got %v", err)
	}
	for _, raw := range []string{`{"a":`, `[1,2]`, `"text"`} {
		if _, err := importctx.Extract([]byte(raw), logger); !errors.Is(err, importctx.ErrInvalidJSON) {
			t.Fatalf("%s: expected ErrInvalidJSON, got %v", raw, err)
		}
	}
}

func TestExtract_CustomPaths(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"header":{"id":"x"},"meta":{"process":".MOV.02."}}`)
	got, err := importctx.Extract(raw,
		importctx.WithLogger(testsupport.Logger()),
		importctx.WithPaths("header.id", "meta.process", ""),
	)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := map[string]string{"message_id": "x", "business_process": "MOV.02."}
	if diff := cmp.Diff(want, got.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}
