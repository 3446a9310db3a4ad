package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBatch_PlaceholderSubstitution(t *testing.T) {
	recipients := []Recipient{
		{Phone: "+5511000000001", Name: "Ana"},
		{Phone: "+5511000000002"}, // no name, falls back to phone
	}
	parts := []TemplatePart{
		{Kind: "text", Body: "Oi {{nome}}, tudo bem?"},
		{Kind: "buttons", Body: "{{nome}}, escolha:", Payload: map[string]interface{}{"buttons": []string{"sim", "não"}}},
	}

	batch := BuildBatch(recipients, parts)
	require.Len(t, batch, 4)

	assert.Equal(t, "+5511000000001", batch[0].Phone)
	assert.Equal(t, "Oi Ana, tudo bem?", batch[0].Body)
	assert.Equal(t, "Ana, escolha:", batch[1].Body)
	assert.Equal(t, "buttons", batch[1].Kind)

	assert.Equal(t, "Oi +5511000000002, tudo bem?", batch[2].Body)
	assert.Equal(t, "+5511000000002, escolha:", batch[3].Body)
}

func TestBuildBatch_Deterministic(t *testing.T) {
	recipients := []Recipient{
		{Phone: "+5511000000001", Name: "Ana"},
		{Phone: "+5511000000002", Name: "Bia"},
	}
	parts := []TemplatePart{
		{Kind: "text", Body: "hi {{nome}}"},
		{Kind: "document", Payload: map[string]string{"url": "https://example.com/doc.pdf"}},
	}

	first := BuildBatch(recipients, parts)
	second := BuildBatch(recipients, parts)
	assert.Equal(t, first, second)

	// Recipient-major ordering: all parts of one recipient before the next.
	assert.Equal(t, "+5511000000001", first[0].Phone)
	assert.Equal(t, "+5511000000001", first[1].Phone)
	assert.Equal(t, "+5511000000002", first[2].Phone)
}

func TestBuildBatch_Empty(t *testing.T) {
	assert.Empty(t, BuildBatch(nil, []TemplatePart{{Kind: "text", Body: "hi"}}))
	assert.Empty(t, BuildBatch([]Recipient{{Phone: "+55"}}, nil))
}
