package report

// CoverField is one label/value line on the document's cover.
type CoverField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Spec is the fully-resolved, renderer-ready description of a document.
// It is built once by the assembler and consumed once by the renderer.
type Spec struct {
	CoverFields []CoverField `json:"coverFields"`
	BodyText    string       `json:"bodyText"`
	PageCount   int          `json:"pageCount"`
}
