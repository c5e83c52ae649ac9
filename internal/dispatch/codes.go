package dispatch

import "strings"

// DeclarationTypeMeaning expands a declaration type code into its human
// readable form. Unknown codes pass through unchanged.
func DeclarationTypeMeaning(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "EM":
		return "Emergency declaration"
	case "DR":
		return "Major disaster"
	case "FM":
		return "Fire management"
	default:
		return code
	}
}

var incidentMeanings = map[string]string{
	"0": "Not applicable",
	"1": "Explosion",
	"2": "Straight-line winds",
	"3": "Tidal wave",
	"4": "Tropical storm",
	"5": "Winter storm",
	"8": "Tropical depression",
	"A": "Tsunami",
	"B": "Biological",
	"C": "Coastal storm",
	"D": "Drought",
	"E": "Earthquake",
	"F": "Flood",
	"G": "Freezing",
	"H": "Hurricane",
	"I": "Terrorist",
	"J": "Typhoon",
	"K": "Dam/levee break",
	"L": "Chemical",
	"M": "Mud/landslide",
	"N": "Nuclear",
	"O": "Severe ice storm",
	"P": "Fishing losses",
	"Q": "Crop losses",
	"R": "Fire",
	"S": "Snowstorm",
	"T": "Tornado",
	"U": "Civil unrest",
	"V": "Volcanic eruption",
	"W": "Severe storm",
	"X": "Toxic substances",
	"Y": "Human cause",
	"Z": "Other",
}

// IncidentTypeMeanings expands incident type codes into readable names,
// passing unknown codes through unchanged.
func IncidentTypeMeanings(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if meaning, ok := incidentMeanings[strings.ToUpper(code)]; ok {
			out = append(out, meaning)
			continue
		}
		out = append(out, code)
	}
	return out
}
