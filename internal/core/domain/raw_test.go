package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawDocument_Size(t *testing.T) {
	raw := &RawDocument{
		Name:     "notes.txt",
		Type:     DocumentTypeText,
		MIMEType: "text/plain",
		Content:  []byte("hello"),
	}

	assert.Equal(t, int64(5), raw.Size())
	assert.Equal(t, int64(0), (&RawDocument{}).Size())
}
