package naming

import (
	"strconv"
	"strings"
)

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a series of dot-separated elements. Each element must be
// non-empty, capitalized CamelCase, and may carry square-bracket indices
// (e.g., "Memory.Block[3]").
func NameMustBeValid(name string) {
	defer func() {
		if r := recover(); r != nil {
			panic("Name " + name + " is not valid: " + r.(string))
		}
	}()

	for _, elem := range strings.Split(name, ".") {
		elemMustBeValid(elem)
	}
}

func elemMustBeValid(elem string) {
	bracketMustMatch(elem)

	elemName := elem
	if i := strings.Index(elem, "["); i >= 0 {
		elemName = elem[:i]
		indexMustBeInteger(elem[i:])
	}

	if elemName == "" {
		panic("Name element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-", " "} {
		if strings.Contains(elemName, c) {
			panic("Name element must not contain " + c)
		}
	}

	if elemName[0] < 'A' || elemName[0] > 'Z' {
		panic("Name element must start with a capital letter")
	}
}

func bracketMustMatch(elem string) {
	openBracketCount := 0
	for _, c := range elem {
		switch c {
		case '[':
			openBracketCount++
		case ']':
			openBracketCount--
			if openBracketCount < 0 {
				panic("Name bracket must match")
			}
		}
	}

	if openBracketCount != 0 {
		panic("Name bracket must match")
	}
}

func indexMustBeInteger(indexPart string) {
	for _, part := range strings.Split(indexPart, "[") {
		if part == "" {
			continue
		}

		_, err := strconv.Atoi(strings.TrimSuffix(part, "]"))
		if err != nil {
			panic("Name index must be integer")
		}
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
