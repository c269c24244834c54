package recovery

import "testing"

var validDocs = []string{
	`{"po":{"poNumber":"PO-1","poDate":"2024-01-01","totalValue":10.5},"items":[{"orderQty":2,"isIncomplete":false}]}`,
	"{\n  \"po\": {\n    \"poNumber\": \"A\"\n  },\n  \"items\": [\n    {\n      \"a\": 1,\n      \"b\": null\n    }\n  ]\n}",
	`{"note":"} \"x\" 5 \"y\", ]","k":[1, 2],"t":[true, false, null]}`,
	`{"remarks":"size 7 \"ring\" {gift}, key: value,}","n":-3.5e2}`,
}

func TestStagesAreNoOpsOnValidJSON(t *testing.T) {
	for _, st := range Stages() {
		for _, doc := range validDocs {
			if got := st.Apply(doc); got != doc {
				t.Errorf("%s(%q) = %q, want unchanged", st.Name, doc, got)
			}
		}
	}
}

func TestStagesAreIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{po: {poNumber: \"1\"} \"items\": [1 2,],}\n```",
		"{\"a\":\"x\x01y\n\"b\": 3",
		`prefix {"a": [1,,2,], "b": "c" "d": true "e": 1} suffix`,
	}
	for _, st := range Stages() {
		for _, in := range inputs {
			once := st.Apply(in)
			if twice := st.Apply(once); twice != once {
				t.Errorf("%s not idempotent on %q: %q then %q", st.Name, in, once, twice)
			}
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"```JSON {\"a\":1} ```", `{"a":1}`},
		{`  {"a":1}  `, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRemoveControlChars(t *testing.T) {
	in := "{\"a\":\"x\x00\x01y\"}\n\t\r"
	want := "{\"a\":\"xy\"}\n\t\r"
	if got := RemoveControlChars(in); got != want {
		t.Fatalf("RemoveControlChars() = %q, want %q", got, want)
	}
}

func TestCloseUnterminatedStrings(t *testing.T) {
	tests := []struct{ in, want string }{
		{"{\"a\":\"abc\n}", "{\"a\":\"abc\"\n}"},
		{`{"a":"abc`, `{"a":"abc"`},
		{`{"a":"ab\"c`, `{"a":"ab\"c"`},
		{`{"a":"abc\`, `{"a":"abc\\"`},
	}
	for _, tt := range tests {
		if got := CloseUnterminatedStrings(tt.in); got != tt.want {
			t.Errorf("CloseUnterminatedStrings(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteUnquotedKeys(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{po: {poNumber: "X"}, items: []}`, `{"po": {"poNumber": "X"}, "items": []}`},
		{`{"a": "x, note: y"}`, `{"a": "x, note: y"}`},
		{`{total_value : 5}`, `{"total_value": 5}`},
	}
	for _, tt := range tests {
		if got := QuoteUnquotedKeys(tt.in); got != tt.want {
			t.Errorf("QuoteUnquotedKeys(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInsertMissingCommas(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"po":{} "items":[]}`, `{"po":{}, "items":[]}`},
		{`[{"a":1} {"b":2}]`, `[{"a":1}, {"b":2}]`},
		{`[[1] [2]]`, `[[1], [2]]`},
		{`{"a":[1] "b":2}`, `{"a":[1], "b":2}`},
		{`{"a":1 "b":2}`, `{"a":1, "b":2}`},
		{`{"a":true "b":null "c":"d"}`, `{"a":true, "b":null, "c":"d"}`},
		{`["x" 5 "y" false]`, `["x", 5, "y", false]`},
		{`["x" {"a":1} "y" [2]]`, `["x", {"a":1}, "y", [2]]`},
		{`{"a":"} \"b\" 5 \"c"}`, `{"a":"} \"b\" 5 \"c"}`},
		{`{"a":nullable "b":1}`, `{"a":nullable "b":1}`},
	}
	for _, tt := range tests {
		if got := InsertMissingCommas(tt.in); got != tt.want {
			t.Errorf("InsertMissingCommas(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractBalancedObject(t *testing.T) {
	tests := []struct{ in, want string }{
		{`Sure! {"a":{"b":1}} hope this helps`, `{"a":{"b":1}}`},
		{`{"a":"}"} trailing`, `{"a":"}"}`},
		{`no object here`, `no object here`},
		{`x {"a":[1,2`, `{"a":[1,2`},
	}
	for _, tt := range tests {
		if got := ExtractBalancedObject(tt.in); got != tt.want {
			t.Errorf("ExtractBalancedObject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRemoveTrailingCommas(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"{\"a\":1,\n}", "{\"a\":1\n}"},
		{`{"a":"x,}",}`, `{"a":"x,}"}`},
		{`[1,,]`, `[1]`},
	}
	for _, tt := range tests {
		if got := RemoveTrailingCommas(tt.in); got != tt.want {
			t.Errorf("RemoveTrailingCommas(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
