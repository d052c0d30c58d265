package domain

// Mandatory provenance properties on every link
const (
	PropSource       = "source"
	PropReferenceURL = "reference_url"
	PropPointInTime  = "point_in_time"
)

// Optional provenance properties carried by a reference bundle
const (
	PropReferenceURLInfo          = "reference_url_info"
	PropReferenceTimeModification = "reference_time_modification"
)

// RequiredProvenance lists the properties every link must carry
var RequiredProvenance = []string{PropSource, PropReferenceURL, PropPointInTime}

// MissingProvenance returns the required provenance properties absent from p
func MissingProvenance(p Properties) []string {
	var missing []string
	for _, name := range RequiredProvenance {
		if !p.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Link is a typed, directed relationship between two nodes
type Link struct {
	Type       string     `json:"type"`
	Src        NodeID     `json:"src"`
	Dst        NodeID     `json:"dst"`
	Properties Properties `json:"properties"`
}

// LinkSpec is one outgoing link of a source node, as passed to AddLinks
type LinkSpec struct {
	Type       string
	Dst        NodeID
	Properties Properties
}

// BulkLink is a node pair with one or more property sets; each set becomes
// its own link.
type BulkLink struct {
	Src          NodeID
	Dst          NodeID
	PropertySets []Properties
}
