package entity

// Metadata is the JSON document a token uri points at.
type Metadata struct {
	Uri         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (m Metadata) UriEmpty() bool {
	return m.Uri == ""
}
