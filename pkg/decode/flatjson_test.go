package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestFlatJSONBareArray(t *testing.T) {
	got := FlatJSON(zaptest.NewLogger(t), []byte(`[{"a":1},{"a":2}]`), "amendements")
	assert.Len(t, got, 2)
}

func TestFlatJSONKeyedArray(t *testing.T) {
	got := FlatJSON(zaptest.NewLogger(t), []byte(`{"amendements":[{"a":1},{"a":2},{"a":3}]}`), "amendements")
	assert.Len(t, got, 3)
}

func TestFlatJSONNestedWrapper(t *testing.T) {
	doc := `{"export":{"scrutins":[{"n":"1"},{"n":"2"}]}}`
	got := FlatJSON(zaptest.NewLogger(t), []byte(doc), "export", "scrutins")
	assert.Len(t, got, 2)
}

func TestFlatJSONUnrecognizedShapeReturnsEmpty(t *testing.T) {
	got := FlatJSON(zaptest.NewLogger(t), []byte(`{"foo": 1}`), "amendements")
	assert.Empty(t, got)
}

func TestFlatJSONInvalidDocumentReturnsEmpty(t *testing.T) {
	got := FlatJSON(zaptest.NewLogger(t), []byte(`{{{`), "amendements")
	assert.Empty(t, got)
}
