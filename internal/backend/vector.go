package backend

import (
	"strconv"
	"strings"
)

// EncodeVector renders an embedding in the bracketed text form accepted by
// pgvector and by the embedded backend's JSON column ("[0.1,0.2]").
func EncodeVector(vec []float32) string {
	if len(vec) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVector decodes the bracketed text form back into an embedding.
// Malformed elements are skipped rather than failing the whole vector.
func ParseVector(text string) []float32 {
	text = strings.Trim(strings.TrimSpace(text), "[]")
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		vec = append(vec, float32(f))
	}
	return vec
}
