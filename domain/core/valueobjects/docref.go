package valueobjects

import (
	"fmt"
	"strings"
)

// DocRef identifies a reference document: the entity kind (e.g. "Lead")
// plus the document id. Reminders and comments both attach to a DocRef.
type DocRef struct {
	docType string
	docID   string
}

// NewDocRef creates a validated document reference
func NewDocRef(docType, docID string) (DocRef, error) {
	docType = strings.TrimSpace(docType)
	docID = strings.TrimSpace(docID)
	if docType == "" {
		return DocRef{}, fmt.Errorf("document type cannot be empty")
	}
	if docID == "" {
		return DocRef{}, fmt.Errorf("document id cannot be empty")
	}
	return DocRef{docType: docType, docID: docID}, nil
}

// MustDocRef creates a document reference and panics on invalid input.
// For use in tests and static initialization only.
func MustDocRef(docType, docID string) DocRef {
	ref, err := NewDocRef(docType, docID)
	if err != nil {
		panic(err)
	}
	return ref
}

// Type returns the entity kind of the referenced document
func (r DocRef) Type() string { return r.docType }

// ID returns the id of the referenced document
func (r DocRef) ID() string { return r.docID }

// IsZero reports whether the reference is unset
func (r DocRef) IsZero() bool { return r.docType == "" && r.docID == "" }

// String returns "Type/ID" for logging
func (r DocRef) String() string {
	return r.docType + "/" + r.docID
}
