package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?limit=50&offset=10")

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	if p := paramsFor("/?limit=500"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	p := paramsFor("/?limit=abc&offset=-5")

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit for malformed input, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name    string
		params  Params
		want    []int
		hasMore bool
	}{
		{"first page", Params{Limit: 2, Offset: 0}, []int{1, 2}, true},
		{"middle page", Params{Limit: 2, Offset: 2}, []int{3, 4}, true},
		{"last partial page", Params{Limit: 2, Offset: 4}, []int{5}, false},
		{"past end", Params{Limit: 2, Offset: 9}, []int{}, false},
		{"whole list", Params{Limit: 20, Offset: 0}, []int{1, 2, 3, 4, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Page(items, tt.params)
			if r.Total != len(items) {
				t.Errorf("Total = %d, want %d", r.Total, len(items))
			}
			if r.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", r.HasMore, tt.hasMore)
			}
			if len(r.Data) != len(tt.want) {
				t.Fatalf("Data = %v, want %v", r.Data, tt.want)
			}
			for i := range tt.want {
				if r.Data[i] != tt.want[i] {
					t.Errorf("Data = %v, want %v", r.Data, tt.want)
				}
			}
		})
	}
}

func TestPage_EmptyDataIsNotNil(t *testing.T) {
	r := Page[string](nil, Params{Limit: 10})
	if r.Data == nil {
		t.Error("expected non-nil Data so it encodes as []")
	}
}

func TestPage_CopiesItems(t *testing.T) {
	items := []int{1, 2, 3}
	r := Page(items, Params{Limit: 3})
	r.Data[0] = 99
	if items[0] != 1 {
		t.Error("Page must not alias the input slice")
	}
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   bool
	}{
		{"more results", Params{Limit: 10, Offset: 0}, 25, true},
		{"exact end", Params{Limit: 10, Offset: 15}, 25, false},
		{"past end", Params{Limit: 10, Offset: 30}, 25, false},
		{"no results", Params{Limit: 10, Offset: 0}, 0, false},
		{"last partial page", Params{Limit: 10, Offset: 20}, 25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext() = %v, want %v", got, tt.want)
			}
		})
	}
}
