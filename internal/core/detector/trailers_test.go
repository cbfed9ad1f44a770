package detector

import (
	"reflect"
	"testing"
)

func TestExtractTrailers(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want []string
	}{
		{
			name: "single trailer",
			msg:  "fix retry\n\nCo-Authored-By: Claude <noreply@anthropic.com>\n",
			want: []string{"Co-Authored-By: Claude <noreply@anthropic.com>"},
		},
		{
			name: "trailer block",
			msg:  "fix retry\n\nbody text\n\nSigned-off-by: Alice <a@x.io>\nCo-Authored-By: aider <b@y.io>",
			want: []string{"Signed-off-by: Alice <a@x.io>", "Co-Authored-By: aider <b@y.io>"},
		},
		{
			name: "no trailer paragraph",
			msg:  "fix retry\n\njust prose at the end",
			want: nil,
		},
		{
			name: "mixed paragraph disqualifies",
			msg:  "fix\n\nSigned-off-by: Alice <a@x.io>\nand some prose",
			want: nil,
		},
		{
			name: "crlf messages",
			msg:  "fix\r\n\r\nSigned-off-by: Alice <a@x.io>\r\n",
			want: []string{"Signed-off-by: Alice <a@x.io>"},
		},
		{
			name: "empty",
			msg:  "",
			want: nil,
		},
		{
			name: "single paragraph message is its own candidate block",
			msg:  "Signed-off-by: Alice <a@x.io>",
			want: []string{"Signed-off-by: Alice <a@x.io>"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExtractTrailers(c.msg); !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestIsTrailerLine(t *testing.T) {
	good := []string{"Co-Authored-By: x <y@z>", "Signed-off-by: a", "Reviewed-by: b"}
	bad := []string{"no colon here", ": starts with colon", "Key:", "key with space: v", "123: nope"}
	for _, s := range good {
		if !isTrailerLine(s) {
			t.Fatalf("%q should be a trailer line", s)
		}
	}
	for _, s := range bad {
		if isTrailerLine(s) {
			t.Fatalf("%q should not be a trailer line", s)
		}
	}
}
