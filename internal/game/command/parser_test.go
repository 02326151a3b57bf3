package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line  string
		verb  string
		words []string
	}{
		{"", "", nil},
		{"   ", "", nil},
		{"block", "block", nil},
		{"ADVANCE", "advance", nil},
		{"use Slash Big Rat", "use", []string{"Slash", "Big", "Rat"}},
		{"  attack \t big   rat  ", "attack", []string{"big", "rat"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			in := Parse(tt.line)
			assert.Equal(t, tt.verb, in.Verb)
			assert.Equal(t, tt.words, in.Words)
			assert.Equal(t, tt.verb == "", in.Empty())
		})
	}
}

func TestInput_Target(t *testing.T) {
	in := Parse("use slash on big rat")
	assert.Equal(t, "big rat", in.Target(1))
	assert.Equal(t, "", in.Target(5))

	// A lone filler is a name, not a filler.
	assert.Equal(t, "on", Parse("attack on").Target(0))
	assert.Equal(t, "ogre", Parse("attack AT ogre").Target(0))
}

func TestParse_Property_VerbIsLowercaseFirstWord(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z]{1,10}`), 1, 6).Draw(t, "words")
		sep := rapid.SampledFrom([]string{" ", "  ", "\t"}).Draw(t, "sep")
		in := Parse(strings.Join(words, sep))
		if in.Verb != strings.ToLower(words[0]) {
			t.Fatalf("verb %q, want %q", in.Verb, strings.ToLower(words[0]))
		}
		if len(in.Words) != len(words)-1 {
			t.Fatalf("got %d words, want %d", len(in.Words), len(words)-1)
		}
	})
}
