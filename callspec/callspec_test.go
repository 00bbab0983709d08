package callspec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mnehpets/callspec/body"
	"github.com/mnehpets/callspec/callpath"
	"github.com/mnehpets/callspec/params"
	"github.com/mnehpets/callspec/typed"
	"github.com/mnehpets/callspec/urlparams"
)

type widget struct {
	ID   string
	Name string
}

var (
	widgetsPath = callpath.New("/api", 1, "/widgets", "")
	userKey     = typed.NewKey[string]("X-User")
	traceKey    = typed.NewKey[string]("X-Trace")
	countKey    = typed.NewKey[int]("X-Count")
)

func TestMethodSet(t *testing.T) {
	s := NewMethodSet(MethodGet, MethodPost)
	if !s.Contains(MethodGet) || !s.Contains(MethodPost) || s.Contains(MethodPut) {
		t.Errorf("Contains mismatch for %v", s)
	}
	if got := AllMethods.Without(MethodHead, MethodPatch).Methods(); !reflect.DeepEqual(got, []Method{MethodGet, MethodPost, MethodPut, MethodDelete}) {
		t.Errorf("Without = %v", got)
	}
	if !MethodSet(0).IsEmpty() {
		t.Error("zero set should be empty")
	}
	if s.Contains(Method("TRACE")) {
		t.Error("unknown method should not be contained")
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" put ")
	if err != nil || m != MethodPut {
		t.Errorf("ParseMethod = %v, %v", m, err)
	}
	if _, err := ParseMethod("TRACE"); err == nil {
		t.Error("expected error for TRACE")
	}
}

func TestNewRequestSpec_Nil(t *testing.T) {
	if _, err := NewRequestSpec(nil, urlparams.Empty, body.EmptySpec()); !errors.Is(err, ErrNilSpec) {
		t.Errorf("err = %v, want ErrNilSpec", err)
	}
	if _, err := NewResponseSpec(params.Empty, nil); !errors.Is(err, ErrNilSpec) {
		t.Errorf("err = %v, want ErrNilSpec", err)
	}
}

func TestBuilder_Defaults(t *testing.T) {
	s, err := NewBuilder(widgetsPath).Build()
	if err != nil {
		t.Fatal(err)
	}
	if s.SupportedMethods() != AllMethods {
		t.Errorf("methods = %v, want all", s.SupportedMethods())
	}
	if !s.RequestSpec().Body().IsEmpty() || !s.ResponseSpec().Body().IsEmpty() {
		t.Error("bodies should default to empty")
	}
	if s.Version() != 1 {
		t.Errorf("Version = %v", s.Version())
	}
	if s.WebContext() != nil {
		t.Error("unexpected web context")
	}
}

func TestBuilder_WebContextPromotesHeaders(t *testing.T) {
	ctx, err := NewWebContextSpec(userKey, traceKey)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewBuilder(widgetsPath).
		SupportsMethod(MethodPost).
		AddRequestHeader(countKey).
		WebContext(ctx).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"X-Count", "X-User", "X-Trace"}
	if diff := cmp.Diff(want, s.RequestSpec().Headers().Names()); diff != "" {
		t.Errorf("request headers (-want +got):\n%s", diff)
	}
	if !s.Supports(MethodPost) || s.Supports(MethodGet) {
		t.Errorf("methods = %v", s.SupportedMethods())
	}
}

func TestBuilder_DuplicateWebContext(t *testing.T) {
	ctx, _ := NewWebContextSpec(userKey)
	_, err := NewBuilder(widgetsPath).WebContext(ctx).WebContext(ctx).Build()
	if !errors.Is(err, ErrDuplicateWebContext) {
		t.Errorf("err = %v, want ErrDuplicateWebContext", err)
	}
}

func TestBuilder_ConflictingHeader(t *testing.T) {
	_, err := NewBuilder(widgetsPath).
		AddRequestHeader(typed.NewKey[string]("X-Count"), countKey).
		Build()
	if !errors.Is(err, params.ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

func TestBuilder_Reusable(t *testing.T) {
	b := NewBuilder(widgetsPath).AddRequestHeader(userKey)
	first, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	b.AddRequestHeader(traceKey)
	second, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if first.RequestSpec().Headers().Len() != 1 || second.RequestSpec().Headers().Len() != 2 {
		t.Errorf("lens = %d, %d", first.RequestSpec().Headers().Len(), second.RequestSpec().Headers().Len())
	}
}

func TestBuilder_NullPath(t *testing.T) {
	if _, err := NewBuilder(callpath.NullPath).Build(); err == nil {
		t.Error("expected error for null path")
	}
}

func TestCreateCopy(t *testing.T) {
	s, err := NewBuilder(widgetsPath).SupportsMethod(MethodGet).Build()
	if err != nil {
		t.Fatal(err)
	}
	other := callpath.New("/api", 2, "/gadgets", "")
	c := s.CreateCopy(other)
	if c.Path() != other || s.Path() != widgetsPath {
		t.Errorf("paths = %v, %v", c.Path(), s.Path())
	}
	if c.SupportedMethods() != s.SupportedMethods() || c.RequestSpec() != s.RequestSpec() {
		t.Error("copy should share structure")
	}
}

func TestRestBuilder(t *testing.T) {
	reg := typed.NewRegistry()
	s, err := RestBuilderFor[widget](widgetsPath).Registry(reg).Build()
	if err != nil {
		t.Fatal(err)
	}
	if s.ResourceName() != "widget" {
		t.Errorf("ResourceName = %q", s.ResourceName())
	}
	if s.ResourceType() != reflect.TypeOf(widget{}) {
		t.Errorf("ResourceType = %v", s.ResourceType())
	}
	if got := s.RequestSpec().Body(); got.Shape() != body.ShapeSimple || got.ElemType() != s.ResourceType() {
		t.Errorf("request body = %v", got)
	}
	if s.Supports(MethodPatch) || !s.Supports(MethodDelete) {
		t.Errorf("methods = %v", s.SupportedMethods())
	}

	r := s.ForResource("42")
	if r.Path().ResourceID() != "42" || s.Path().HasResourceID() {
		t.Errorf("ForResource paths = %v, %v", r.Path(), s.Path())
	}
	if r.ResourceName() != "widget" {
		t.Errorf("copy ResourceName = %q", r.ResourceName())
	}
}

func TestRestBuilder_NameFromPath(t *testing.T) {
	s, err := RestBuilderFor[widget](widgetsPath).Build()
	if err != nil {
		t.Fatal(err)
	}
	if s.ResourceName() != "widgets" {
		t.Errorf("ResourceName = %q", s.ResourceName())
	}
}

func TestQueryBuilder(t *testing.T) {
	ps, err := urlparams.NewSpec(typed.NewKey[string]("prefix"))
	if err != nil {
		t.Fatal(err)
	}
	q, err := NewQueryBuilder(widgetsPath, "byPrefix", reflect.TypeOf(widget{})).Params(ps).Build()
	if err != nil {
		t.Fatal(err)
	}
	if q.QueryName() != "byPrefix" || q.SupportedMethods() != NewMethodSet(MethodGet) {
		t.Errorf("query = %v %v", q.QueryName(), q.SupportedMethods())
	}
	if got := q.ResponseSpec().Body(); got.Shape() != body.ShapeList || got.ElemType() != reflect.TypeOf(widget{}) {
		t.Errorf("response body = %v", got)
	}
	want := []string{"prefix", QueryNameParam}
	if diff := cmp.Diff(want, q.RequestSpec().URLParams().Params().Names()); diff != "" {
		t.Errorf("URL params (-want +got):\n%s", diff)
	}
}

func TestWebContext(t *testing.T) {
	ctx, err := NewWebContextSpec(userKey, traceKey)
	if err != nil {
		t.Fatal(err)
	}
	hs, _ := params.NewSpec(userKey, traceKey, countKey)
	m := params.NewMap(hs)
	if err := params.Set(m, userKey, "ann"); err != nil {
		t.Fatal(err)
	}
	if err := params.Set(m, countKey, 3); err != nil {
		t.Fatal(err)
	}
	wc := ctx.From(m)
	if v, ok := ContextValue(wc, userKey); !ok || v != "ann" {
		t.Errorf("user = %q, %v", v, ok)
	}
	if _, ok := ContextValue(wc, traceKey); ok {
		t.Error("trace should be absent")
	}
	if diff := cmp.Diff([]string{"X-User"}, wc.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}
