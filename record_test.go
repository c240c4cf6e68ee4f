package routeros

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAttributeWord(t *testing.T) {
	cases := []struct {
		word      string
		wantKey   string
		wantValue string
		wantOK    bool
	}{
		{"=name=ether1", "name", "ether1", true},
		{"=comment=a=b=c", "comment", "a=b=c", true},
		{"=empty=", "empty", "", true},
		{"!re", "", "", false},
		{"?name=ether1", "", "", false},
	}

	for _, c := range cases {
		key, value, ok := parseAttributeWord(c.word)
		if ok != c.wantOK || key != c.wantKey || value != c.wantValue {
			t.Errorf("parseAttributeWord(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.word, key, value, ok, c.wantKey, c.wantValue, c.wantOK)
		}
	}
}

func TestProjectRecords(t *testing.T) {
	sentences := [][]string{
		{"!re", "=name=ether1", "=rx-byte=100"},
		{"!re", "=name=ether2", "=rx-byte=200"},
		{"!done"},
	}

	got := projectRecords(sentences)
	want := []Record{
		{"name": "ether1", "rx-byte": "100"},
		{"name": "ether2", "rx-byte": "200"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("projectRecords mismatch (-want +got):\n%s", diff)
	}
}

func TestReplyLookupPrefersDone(t *testing.T) {
	reply := Reply{
		Records: []Record{{"ret": "row-value"}},
		Done:    Record{"ret": "challenge-hex"},
	}

	v, ok := reply.Lookup("ret")
	if !ok || v != "challenge-hex" {
		t.Errorf("Lookup(ret) = (%q, %v), want (challenge-hex, true)", v, ok)
	}
}

func TestReplyLookupFallsBackToRecords(t *testing.T) {
	reply := Reply{
		Records: []Record{{"name": "ether1"}},
		Done:    Record{},
	}

	v, ok := reply.Lookup("name")
	if !ok || v != "ether1" {
		t.Errorf("Lookup(name) = (%q, %v), want (ether1, true)", v, ok)
	}

	if _, ok := reply.Lookup("missing"); ok {
		t.Errorf("Lookup(missing) found a value, want not found")
	}
}
