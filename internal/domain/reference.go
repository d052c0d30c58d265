package domain

import "time"

// Reference is a crawler's default provenance, merged into every link it
// emits. Per-link properties override it.
type Reference struct {
	Source     string
	URL        string
	InfoURL    string
	FetchedAt  time.Time
	ModifiedAt *time.Time
}

// NewReference creates a reference stamped with the current time
func NewReference(source, url string) Reference {
	return Reference{
		Source:    source,
		URL:       url,
		FetchedAt: time.Now().UTC(),
	}
}

// Properties renders the bundle as link properties
func (r Reference) Properties() Properties {
	props := Properties{
		PropSource:       String(r.Source),
		PropReferenceURL: String(r.URL),
		PropPointInTime:  Time(r.FetchedAt),
	}
	if r.InfoURL != "" {
		props[PropReferenceURLInfo] = String(r.InfoURL)
	}
	if r.ModifiedAt != nil {
		props[PropReferenceTimeModification] = Time(*r.ModifiedAt)
	}
	return props
}

// With returns the bundle overlaid with extra
func (r Reference) With(extra ...Properties) Properties {
	return r.Properties().Merge(extra...)
}
