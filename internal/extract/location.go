package extract

import (
	"regexp"
	"strings"
)

// stateNames is the state and province vocabulary used to find a trailing
// state in a location phrase. Order matters: full names come before
// abbreviations that prefix them.
var stateNames = []string{
	`AB`, `Alberta`,
	`AL`, `Alabama`,
	`AK`, `Alaska`,
	`AZ`, `Arizona`,
	`AR`, `Arkansas`,
	`CA`, `California`,
	`CO`, `Colorado`,
	`CT`, `Connecticut`,
	`DE`, `Delaware`,
	`DC`,
	`FL`, `Florida`,
	`GA`, `Georgia`,
	`HI`, `Hawaii`,
	`ID`, `Idaho`,
	`IL`, `Illinois`, `Ill`,
	`IN`, `Indiana`,
	`IA`, `Iowa`,
	`KS`, `Kansas`,
	`KY`, `Kentucky`,
	`LA`, `Louisiana`,
	`ME`, `Maine`,
	`MD`, `Maryland`,
	`MA`, `Massachusetts`,
	`MI`, `Michigan`, `Mich`,
	`MN`, `Minnesota`, `Minn`,
	`MS`, `Mississippi`, `Miss`,
	`MO`, `Missouri`,
	`MT`, `Montana`, `Mont`,
	`NE`, `Nebraska`, `Neb`,
	`NV`, `Nevada`,
	`NH`, `New Hampshire`,
	`NJ`, `New Jersey`,
	`NM`, `New Mexico`,
	`NY`, `New York`,
	`NC`, `North Carolina`,
	`ND`, `North Dakota`, `N\.D`,
	`OH`, `Ohio`,
	`OK`, `Oklahoma`, `Okla`,
	`OR`, `Oregon`,
	`PA`, `Pennsylvania`,
	`RI`, `Rhode Island`,
	`SC`, `South Carolina`,
	`SD`, `South Dakota`, `S\.D`,
	`SK`, `Saskatchewan`,
	`TN`, `Tennessee`,
	`TX`, `Texas`,
	`UT`, `Utah`,
	`VT`, `Vermont`,
	`VA`, `Virginia`,
	`WA`, `Washington`,
	`WV`, `West Virginia`,
	`WI`, `Wisconsin`,
	`WY`, `Wyoming`, `Wyo`,
}

var (
	stateAlternation = `(?:` + strings.Join(stateNames, `|`) + `)`

	// trailingState captures "<city> <state>" with the state at the end.
	trailingState = regexp.MustCompile(`^(.*?)[\s,]*\b(` + stateAlternation + `)\b\.?\s*$`)

	// wholeState matches a phrase that is nothing but a state.
	wholeState = regexp.MustCompile(`^\s*` + stateAlternation + `\.?\s*$`)
)

const locationTrim = " \t,;:.*"

// ParseLocation splits a location phrase into city and state. A comma always
// wins over the state vocabulary; without either, the whole text is the city.
func ParseLocation(text string) (city, state string) {
	text = strings.TrimSpace(text)
	if before, after, ok := strings.Cut(text, ","); ok {
		return strings.Trim(before, locationTrim), strings.Trim(after, locationTrim)
	}
	if m := trailingState.FindStringSubmatch(text); m != nil {
		return strings.Trim(m[1], locationTrim), m[2]
	}
	return strings.Trim(text, locationTrim), ""
}

// IsState reports whether text is exactly a state name or abbreviation.
func IsState(text string) bool {
	return wholeState.MatchString(text)
}
