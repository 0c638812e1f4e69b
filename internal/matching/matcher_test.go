package matching

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubby/pkg/stub"
)

func newRequest(t *testing.T, method, target, body string, headers map[string]string) *Request {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &Request{Method: method, Path: u.Path, Query: u.Query(), Header: h, Body: body}
}

func TestMethodsIntersect(t *testing.T) {
	assert.True(t, MethodsIntersect([]string{"GET", "POST"}, "post"))
	assert.False(t, MethodsIntersect([]string{"GET"}, "PUT"))
	assert.False(t, MethodsIntersect(nil, "GET"))
}

func TestURLMatches(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		path   string
		want   bool
	}{
		{"literal equal", "/invoice/123", "/invoice/123", true},
		{"literal differs", "/invoice/123", "/invoice/1234", false},
		{"dot stays literal", "/file.json", "/fileXjson", false},
		{"regex full match", "^/resources/asn/.*$", "/resources/asn/33333", true},
		{"regex partial is not enough", "/resources/[0-9]+", "/resources/12/extra", false},
		{"regex class", "/invoice/[0-9]+", "/invoice/42", true},
		{"invalid regex never matches", "/broken/(unclosed", "/broken/x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URLMatches(&stub.Request{URL: tt.stored}, tt.path))
		})
	}
}

func TestStringsMatch(t *testing.T) {
	assert.True(t, StringsMatch("", "anything"))
	assert.True(t, StringsMatch("", ""))
	assert.False(t, StringsMatch("value", ""))
	assert.True(t, StringsMatch("application/json+x", "application/json+x"))
	assert.True(t, StringsMatch("text/.*", "text/plain"))
	assert.False(t, StringsMatch("text/.*", "application/json"))
}

func TestNormalizeQueryValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`["apple","orange"]`, "[apple,orange]"},
		{`['apple','orange']`, "[apple,orange]"},
		{`[ "apple" , 'orange' ]`, "[apple,orange]"},
		{`%5B%22apple%22,%22orange%22%5D`, "[apple,orange]"},
		{`%5B%27apple%27,%20%27orange%27%5D`, "[apple,orange]"},
		{"plain", "plain"},
		{"two+words", "two words"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQueryValue(tt.in), tt.in)
	}
}

func TestCanonicalArray(t *testing.T) {
	assert.Equal(t, "[apple,orange]", CanonicalArray(`['apple', "orange"]`))
	assert.Equal(t, `\d+`, CanonicalArray(`\d+`))
	assert.Equal(t, "^[a-z]+$", CanonicalArray(" ^[a-z]+$ "))
}

func TestQueryMatches(t *testing.T) {
	tests := []struct {
		name     string
		stored   map[string]string
		asserted string
		want     bool
	}{
		{"absent stored map", nil, "a=1", true},
		{"subset", map[string]string{"status": "active"}, "status=active&type=x", true},
		{"missing key", map[string]string{"status": "active"}, "type=x", false},
		{"different value", map[string]string{"status": "active"}, "status=inactive", false},
		{"regex value", map[string]string{"id": "[0-9]+"}, "id=42", true},
		{"single vs double quotes", map[string]string{"type_name": `['apple','orange']`}, `type_name=["apple","orange"]`, true},
		{"double vs single quotes", map[string]string{"type_name": `["apple","orange"]`}, `type_name=['apple','orange']`, true},
		{"encoded brackets", map[string]string{"type_name": `["apple","orange"]`}, `type_name=%5B%22apple%22,%22orange%22%5D`, true},
		{"repeated parameter", map[string]string{"type_name": `["apple","orange"]`}, `type_name=apple&type_name=orange`, true},
		{"array order matters", map[string]string{"type_name": `["apple","orange"]`}, `type_name=["orange","apple"]`, false},
		{"plus quantifier", map[string]string{"id": `\d+`}, "id=123", true},
		{"anchored plus quantifier", map[string]string{"name": `^[a-z]+$`}, "name=abc", true},
		{"plus quantifier mismatch", map[string]string{"id": `\d+`}, "id=12a", false},
		{"encoded plus in asserted value", map[string]string{"q": "two words"}, "q=two%2Bwords", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.asserted)
			require.NoError(t, err)
			assert.Equal(t, tt.want, QueryMatches(tt.stored, q))
		})
	}
}

func TestHeadersMatch(t *testing.T) {
	basic := stub.NewRequest(stub.Request{URL: "/", Headers: map[string]string{"authorization-basic": "bob:secret"}})
	bearer := stub.NewRequest(stub.Request{URL: "/", Headers: map[string]string{"authorization-bearer": "YNZmIzI2Ts0Q=="}})
	custom := stub.NewRequest(stub.Request{URL: "/", Headers: map[string]string{"authorization-custom": "CustomScheme abc"}})
	plain := stub.NewRequest(stub.Request{URL: "/", Headers: map[string]string{"Content-Type": "application/json"}})

	tests := []struct {
		name    string
		stored  *stub.Request
		headers map[string]string
		want    bool
	}{
		{"basic", basic, map[string]string{"Authorization": "Basic Ym9iOnNlY3JldA=="}, true},
		{"basic wrong", basic, map[string]string{"Authorization": "Basic d3Jvbmc="}, false},
		{"basic missing", basic, nil, false},
		{"bearer", bearer, map[string]string{"authorization": "Bearer YNZmIzI2Ts0Q=="}, true},
		{"bearer scheme mismatch", bearer, map[string]string{"Authorization": "Basic YNZmIzI2Ts0Q=="}, false},
		{"custom", custom, map[string]string{"Authorization": "CustomScheme abc"}, true},
		{"case-insensitive names", plain, map[string]string{"CONTENT-TYPE": "application/json"}, true},
		{"value mismatch", plain, map[string]string{"Content-Type": "text/plain"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, HeadersMatch(tt.stored.Headers, h))
		})
	}
}

func TestMatch(t *testing.T) {
	stored := stub.NewRequest(stub.Request{
		Methods: []string{"POST"},
		URL:     "/invoice/[0-9]+",
		Query:   map[string]string{"mode": "fast"},
		Headers: map[string]string{"content-type": "application/json"},
		Post:    `{"a":"b","c":"d"}`,
	})

	ok := newRequest(t, "POST", "/invoice/12?mode=fast", `{"c":"d","a":"b"}`, map[string]string{"Content-Type": "application/json"})
	assert.True(t, Match(stored, ok))

	wrongMethod := newRequest(t, "GET", "/invoice/12?mode=fast", `{"c":"d","a":"b"}`, map[string]string{"Content-Type": "application/json"})
	assert.False(t, Match(stored, wrongMethod))

	b := Explain(stored, wrongMethod)
	assert.False(t, b.Matched())
	assert.Equal(t, 1, b.Failed())
	assert.Equal(t, FieldMethod, b.Fields[0].Field)
	assert.False(t, b.Fields[0].Matched)
}

func TestMatch_IsDeterministic(t *testing.T) {
	stored := stub.NewRequest(stub.Request{URL: "^/a/.*$"})
	req := newRequest(t, "GET", "/a/b", "", nil)
	for i := 0; i < 10; i++ {
		assert.True(t, Match(stored, req))
	}
}

func TestClosestMiss(t *testing.T) {
	lcs := []*stub.Lifecycle{
		{ResourceID: 0, Request: stub.NewRequest(stub.Request{URL: "/orders"})},
		{ResourceID: 1, Request: stub.NewRequest(stub.Request{URL: "/users", Methods: []string{"POST"}})},
		{ResourceID: 2, Request: stub.NewRequest(stub.Request{URL: "/userz"})},
	}

	miss := ClosestMiss(lcs, newRequest(t, "GET", "/users", "", nil))
	require.NotNil(t, miss)
	assert.Equal(t, 1, miss.ResourceID)
	assert.Equal(t, "method did not match", miss.Reason)

	assert.Nil(t, ClosestMiss(nil, newRequest(t, "GET", "/", "", nil)))
}

func TestRankMatches(t *testing.T) {
	lcs := []*stub.Lifecycle{
		{ResourceID: 0, Request: stub.NewRequest(stub.Request{URL: "^/items/.*$"})},
		{ResourceID: 1, Request: stub.NewRequest(stub.Request{URL: "/items/special"})},
		{ResourceID: 2, Request: stub.NewRequest(stub.Request{URL: "/items/[a-z]+"})},
		{ResourceID: 3, Request: stub.NewRequest(stub.Request{URL: "/items/special"})},
		{ResourceID: 4, Request: stub.NewRequest(stub.Request{URL: "/items/special", Methods: []string{"POST"}})},
	}

	tests := []struct {
		name   string
		target string
		want   []int
	}{
		{"exact matches lead in declaration order", "/items/special", []int{1, 3, 0, 2}},
		{"patterns only", "/items/abc", []int{0, 2}},
		{"nothing", "/other", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, lc := range RankMatches(lcs, newRequest(t, "GET", tt.target, "", nil)) {
				got = append(got, lc.ResourceID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindMatch(t *testing.T) {
	lcs := []*stub.Lifecycle{
		{ResourceID: 0, Request: stub.NewRequest(stub.Request{URL: "^/items/.*$"})},
		{ResourceID: 1, Request: stub.NewRequest(stub.Request{URL: "/items/[a-z]+"})},
		{ResourceID: 2, Request: stub.NewRequest(stub.Request{URL: "/items/special"})},
		{ResourceID: 3, Request: stub.NewRequest(stub.Request{URL: "/other", Methods: []string{"DELETE"}})},
	}

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"exact beats earlier patterns", "GET", "/items/special", 2},
		{"first declared pattern wins", "GET", "/items/abc", 0},
		{"method must intersect", "DELETE", "/other", 3},
		{"no match", "GET", "/other", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatch(lcs, newRequest(t, tt.method, tt.target, "", nil))
			if tt.want < 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ResourceID)
		})
	}
}
