package main

import (
	"testing"

	"juriscite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrecedent(t *testing.T) {
	p, err := parsePrecedent([]byte(`{"case_number":" 0001234-56.2021.8.26.0100 ","court":"TJSP","summary_text":"Tarifa indevida."}`), models.NamespacePublic)
	require.NoError(t, err)
	assert.Equal(t, "0001234-56.2021.8.26.0100", p.ID)
	assert.Equal(t, models.NamespacePublic, p.Namespace)

	_, err = parsePrecedent([]byte(`{"id":"x","summary_text":"Sem número."}`), models.NamespacePublic)
	assert.ErrorContains(t, err, "case_number")

	_, err = parsePrecedent([]byte(`{"case_number":"1"}`), models.NamespacePublic)
	assert.ErrorContains(t, err, "summary_text")

	_, err = parsePrecedent([]byte(`{`), models.NamespacePublic)
	assert.Error(t, err)
}

func TestEmbeddingText(t *testing.T) {
	p := models.PrecedentVector{Court: "STJ", CaseNumber: "REsp 1.234.567/SP", SummaryText: "Ementa."}
	assert.Equal(t, "STJ\nREsp 1.234.567/SP\nEmenta.", embeddingText(p))

	p.Court = ""
	assert.Equal(t, "REsp 1.234.567/SP\nEmenta.", embeddingText(p))
}

func TestValidNamespace(t *testing.T) {
	assert.True(t, validNamespace(models.NamespacePublic))
	assert.True(t, validNamespace(models.NamespaceLegalReference))
	assert.True(t, validNamespace(models.UserNamespace("u1")))
	assert.False(t, validNamespace(models.UserNamespace("")))
	assert.False(t, validNamespace("private"))
}
