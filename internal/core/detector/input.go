package detector

import "provenance/internal/core/record"

// InputFromRecord maps a record onto the detector's input surface
func InputFromRecord(r record.Record) Input {
	return Input{
		Title:          r.Title,
		Body:           r.Body,
		CommitMessages: r.CommitMessages(),
		AuthorLogins:   r.AuthorLogins(),
	}
}
