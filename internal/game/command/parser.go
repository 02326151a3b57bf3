package command

import "strings"

// fillers are words a player may put between a skill and its target, as in
// "use slash on goblin" or "attack at ogre".
var fillers = map[string]bool{"on": true, "at": true}

// Input is one player line split into a verb and the words after it.
type Input struct {
	// Verb is the first word, lowercased.
	Verb string
	// Words are the remaining words with their case preserved.
	Words []string
}

// Parse splits line on whitespace.
//
// Postcondition: Verb is empty only when line has no words.
func Parse(line string) Input {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Input{}
	}
	in := Input{Verb: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		in.Words = fields[1:]
	}
	return in
}

// Empty reports whether the line had no words.
func (in Input) Empty() bool { return in.Verb == "" }

// Target joins the words from index from onward into a target name,
// dropping one leading filler word.
func (in Input) Target(from int) string {
	if from >= len(in.Words) {
		return ""
	}
	words := in.Words[from:]
	if len(words) > 1 && fillers[strings.ToLower(words[0])] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
