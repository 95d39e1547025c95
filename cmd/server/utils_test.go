package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exdock/exdock"
)

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusForError(exdock.NewNotFoundError("x")))
	assert.Equal(t, http.StatusNotFound, statusForError(exdock.NewUnknownOperationError("x")))
	assert.Equal(t, http.StatusConflict, statusForError(exdock.NewDuplicateKeyError("x")))
	assert.Equal(t, http.StatusConflict, statusForError(exdock.NewAttributeInUseError("x")))
	assert.Equal(t, http.StatusBadRequest, statusForError(exdock.NewBadRequestError("x")))
	assert.Equal(t, http.StatusBadRequest, statusForError(exdock.NewTypeMismatchError("x")))
	assert.Equal(t, http.StatusInternalServerError, statusForError(errors.New("plain")))
}

func TestScopeFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?level=website&websiteId=2", nil)
	scope, err := scopeFromQuery(r)
	require.NoError(t, err)
	assert.Equal(t, exdock.WebsiteScope(2), scope)

	r = httptest.NewRequest(http.MethodGet, "/?level=store_view&storeViewId=10", nil)
	scope, err = scopeFromQuery(r)
	require.NoError(t, err)
	assert.Equal(t, exdock.StoreViewScope(10), scope)

	// No level means global.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	scope, err = scopeFromQuery(r)
	require.NoError(t, err)
	assert.Equal(t, exdock.GlobalScope(), scope)

	r = httptest.NewRequest(http.MethodGet, "/?level=website", nil)
	_, err = scopeFromQuery(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodGet, "/?level=galaxy", nil)
	_, err = scopeFromQuery(r)
	assert.Error(t, err)
}
