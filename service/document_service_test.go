package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetDocument(t *testing.T) {
	s := NewDocumentService(DocumentWithStore(fakeDocuments{}))

	created, err := s.CreateDocument(t.Context(), CreateDocumentRequest{UserID: "u1", Title: "  ", Text: queryText})
	require.NoError(t, err)
	doc := created.Document
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, "Documento sem título", doc.Title)

	got, err := s.GetDocument(t.Context(), GetDocumentRequest{ID: doc.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, queryText, got.Document.Text)

	_, err = s.GetDocument(t.Context(), GetDocumentRequest{ID: doc.ID, UserID: "u2"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = s.GetDocument(t.Context(), GetDocumentRequest{ID: uuid.New(), UserID: "u1"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestCreateDocumentValidation(t *testing.T) {
	s := NewDocumentService(DocumentWithStore(fakeDocuments{}))

	_, err := s.CreateDocument(t.Context(), CreateDocumentRequest{Text: queryText})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = s.CreateDocument(t.Context(), CreateDocumentRequest{UserID: "u1", Text: "\n"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	res, err := s.CreateDocument(t.Context(), CreateDocumentRequest{UserID: "u1", Title: strings.Repeat("á", 300), Text: queryText})
	require.NoError(t, err)
	assert.Len(t, []rune(res.Document.Title), maxTitleLength)
}

func TestListDocuments(t *testing.T) {
	s := NewDocumentService(DocumentWithStore(fakeDocuments{}))

	res, err := s.ListDocuments(t.Context(), ListDocumentsRequest{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, res.Documents)
	assert.Empty(t, res.Documents)

	_, err = s.CreateDocument(t.Context(), CreateDocumentRequest{UserID: "u1", Title: "A", Text: queryText})
	require.NoError(t, err)
	_, err = s.CreateDocument(t.Context(), CreateDocumentRequest{UserID: "u2", Title: "B", Text: queryText})
	require.NoError(t, err)

	res, err = s.ListDocuments(t.Context(), ListDocumentsRequest{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "A", res.Documents[0].Title)
	assert.Empty(t, res.Documents[0].Text)

	_, err = s.ListDocuments(t.Context(), ListDocumentsRequest{Limit: 10})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
