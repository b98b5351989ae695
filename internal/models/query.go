package models

// QueryRequest is the POST /query payload.
//
// SearchUUID is the client-supplied identifier the full response envelope
// is cached under; requests without one are rejected before any provider
// work happens. GenerateRelatedQuestions is a pointer so that an absent
// field defaults to true.
type QueryRequest struct {
	Query                    string `json:"query"`
	SearchUUID               string `json:"search_uuid" validate:"required"`
	GenerateRelatedQuestions *bool  `json:"generate_related_questions,omitempty"`
}

// RelatedEnabled reports whether related-question generation was requested.
func (r *QueryRequest) RelatedEnabled() bool {
	return r.GenerateRelatedQuestions == nil || *r.GenerateRelatedQuestions
}
