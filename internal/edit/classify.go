package edit

import (
	"fmt"
	"strings"
)

// EditType is the coarse category of an edit request.
type EditType string

const (
	EditRemove     EditType = "remove"
	EditReplace    EditType = "replace"
	EditRecolor    EditType = "recolor"
	EditBackground EditType = "background"
	EditAdd        EditType = "add"
	EditEnhance    EditType = "enhance"
	EditGeneral    EditType = "general"
)

// Keyword rules are checked in order; the first match wins.
var classifyRules = []struct {
	kind     EditType
	keywords []string
}{
	{EditRemove, []string{"remove", "delete", "erase", "get rid of", "take out", "clean up"}},
	{EditBackground, []string{"background", "backdrop", "behind"}},
	{EditReplace, []string{"replace", "swap", "turn into", "change to", "instead of"}},
	{EditRecolor, []string{
		"color", "colour", "recolor", "recolour", "tint", "paint",
		"black", "white", "red", "blue", "green", "yellow", "orange", "purple",
		"pink", "brown", "gray", "grey", "gold", "silver",
	}},
	{EditAdd, []string{"add", "insert", "put", "place", "include"}},
	{EditEnhance, []string{"enhance", "sharpen", "improve", "brighten", "fix", "retouch", "smooth"}},
}

// Classify buckets a prompt by keyword.
func Classify(prompt string) EditType {
	p := " " + strings.ToLower(prompt) + " "
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if containsWord(p, kw) {
				return rule.kind
			}
		}
	}
	return EditGeneral
}

// containsWord matches kw at word boundaries so "add" doesn't match "address".
func containsWord(s, kw string) bool {
	for i := strings.Index(s, kw); i >= 0; {
		before, after := s[i-1], byte(' ')
		if end := i + len(kw); end < len(s) {
			after = s[end]
		}
		if !isLetter(before) && !isLetter(after) {
			return true
		}
		next := strings.Index(s[i+1:], kw)
		if next < 0 {
			break
		}
		i += next + 1
	}
	return false
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

var instructionTemplates = map[EditType]string{
	EditRemove:     "Remove what is inside the white masked area and fill it to blend seamlessly with the surroundings: %s",
	EditReplace:    "Replace the content of the white masked area, matching lighting and perspective: %s",
	EditRecolor:    "Recolor only the white masked area, keeping texture and shading: %s",
	EditBackground: "Change the background in the white masked area and keep the product untouched: %s",
	EditAdd:        "Add the following inside the white masked area so it looks naturally part of the photo: %s",
	EditEnhance:    "Enhance the white masked area without changing its content: %s",
	EditGeneral:    "Edit only the white masked area of the image: %s",
}

// Instruction builds the one-line instruction sent with a masked edit.
func Instruction(kind EditType, userPrompt string) string {
	tmpl, ok := instructionTemplates[kind]
	if !ok {
		tmpl = instructionTemplates[EditGeneral]
	}
	return fmt.Sprintf(tmpl, strings.TrimSpace(userPrompt))
}
