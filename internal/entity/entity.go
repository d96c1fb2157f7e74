package entity

// Entity is anything stored as a document, keyed by its slug.
type Entity interface {
	Slug() string
}
