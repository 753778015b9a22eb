package generate

import "github.com/goliatone/go-xsdform/pkg/model"

var addressFields = map[string]bool{
	"plotnumber":                 true,
	"streetname":                 true,
	"buildingnumber":             true,
	"apartmentnumber":            true,
	"isstreetseparationpresent":  true,
	"latitude":                   true,
	"longitude":                  true,
	"isstreetterytcodeavailable": true,
	"teryt":                      true,
}

// addressState keeps the fields of one address group consistent: either a
// street address or a plot number, with optional TERYT code and coordinates.
type addressState struct {
	teryt    string
	usePlot  bool
	lat, lon string
}

func (d *Default) addressFor(group string) *addressState {
	if st, ok := d.addresses[group]; ok {
		return st
	}
	st := &addressState{}
	if d.rnd.Intn(2) == 0 {
		st.teryt = d.digits(5)
	} else {
		st.usePlot = d.rnd.Float64() >= 0.8
	}
	if d.rnd.Intn(2) == 0 {
		st.lat, st.lon = d.latitude(), d.longitude()
	}
	d.addresses[group] = st
	return st
}

// address returns the value for one address field; an empty string keeps
// the field empty.
func (d *Default) address(def *model.FieldDef, name string) string {
	st := d.addressFor(parentPath(def.Path))
	switch name {
	case "isstreetterytcodeavailable":
		return boolString(st.teryt != "")
	case "teryt":
		return st.teryt
	case "isstreetseparationpresent":
		return boolString(!st.usePlot)
	case "latitude":
		return st.lat
	case "longitude":
		return st.lon
	case "plotnumber":
		if st.usePlot {
			return d.plotNumber()
		}
		return ""
	}
	if st.usePlot {
		return ""
	}
	switch name {
	case "streetname":
		return d.streetName()
	case "buildingnumber":
		return d.buildingNumber()
	default:
		return d.apartmentNumber()
	}
}

func parentPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return ""
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
