package models

// EmbeddingVector is a fixed-length semantic representation of a text,
// tagged with the model that produced it. Vectors from different models
// live in different spaces and must not be compared silently.
type EmbeddingVector struct {
	Values []float32 `json:"values"`
	Model  string    `json:"model"`
}

func (v EmbeddingVector) Dimensions() int {
	return len(v.Values)
}
