// Package domain defines the read side of the records service
package domain

import "time"

// Filter selects the records a classification run should see.
// Paging is cursor based: AfterID is the last record id of the previous
// page, empty for the first page
type Filter struct {
	Since time.Time
	Until time.Time

	AfterID string
	Limit   int

	// A record is unclassified when no classification exists for this
	// version pair
	RegistryVersion string
	TemplateVersion string
}
