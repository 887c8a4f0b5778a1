package store

import (
	"reflect"
	"strings"
	"testing"

	"github.com/roach88/detcheck/internal/testutil"
)

func TestMarshalExec_Roundtrip(t *testing.T) {
	e := testutil.NewExec("Compiling a.c").
		Args("cc", "-c", "a.c").
		Env("PATH", "/bin").
		Input("a.c", "int x;").
		Output("a.o", "obj").
		Build()

	text, err := marshalExec(e)
	if err != nil {
		t.Fatalf("marshalExec() failed: %v", err)
	}

	got, err := unmarshalExec(text)
	if err != nil {
		t.Fatalf("unmarshalExec() failed: %v", err)
	}
	if !reflect.DeepEqual(got, e) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, e)
	}
}

func TestMarshalExec_NoHTMLEscaping(t *testing.T) {
	e := testutil.NewExec("Executing genrule //a:b").Args("sh", "-c", "a && b > c").Build()

	text, err := marshalExec(e)
	if err != nil {
		t.Fatalf("marshalExec() failed: %v", err)
	}
	if !strings.Contains(text, `"a && b > c"`) {
		t.Errorf("marshalExec() escaped HTML characters: %s", text)
	}
}

func TestUnmarshalExec_InvalidJSON(t *testing.T) {
	if _, err := unmarshalExec("{not json"); err == nil {
		t.Error("unmarshalExec() should fail on invalid JSON")
	}
}

func TestMarshalSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
		want    string
	}{
		{"nil", nil, "[]"},
		{"empty", []string{}, "[]"},
		{"paths", []string{"run1.json", "logs/a&b.json"}, `["run1.json","logs/a&b.json"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalSources(tt.sources)
			if err != nil {
				t.Fatalf("marshalSources() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("marshalSources() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshalSources(t *testing.T) {
	got, err := unmarshalSources("")
	if err != nil {
		t.Fatalf("unmarshalSources(\"\") failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("unmarshalSources(\"\") = %#v, want empty list", got)
	}

	got, err = unmarshalSources(`["a.json","b.json"]`)
	if err != nil {
		t.Fatalf("unmarshalSources() failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a.json", "b.json"}) {
		t.Errorf("unmarshalSources() = %v", got)
	}

	if _, err := unmarshalSources("[1,"); err == nil {
		t.Error("unmarshalSources() should fail on invalid JSON")
	}
}
