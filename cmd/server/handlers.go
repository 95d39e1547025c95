package main

import (
	"net/http"

	"github.com/exdock/exdock"
	"github.com/exdock/exdock/internal"
)

func (s *Server) handleDefineAttribute(w http.ResponseWriter, r *http.Request) {
	var def exdock.AttributeDefinition
	if err := readJSONBody(r, &def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.call(w, r, internal.OpAttributeDefine, exdock.DefineAttributeRequest{Definition: def})
}

func (s *Server) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, internal.OpCacheRequest, exdock.CacheDomainProducts)
}

func (s *Server) handleRemoveAttribute(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, internal.OpAttributeRemove, exdock.RemoveAttributeRequest{
		Key:     r.PathValue("key"),
		Cascade: r.URL.Query().Get("cascade") == "true",
	})
}

func (s *Server) handleAddOption(w http.ResponseWriter, r *http.Request) {
	var value exdock.Value
	if err := readJSONBody(r, &value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.call(w, r, internal.OpOptionAdd, exdock.AddOptionRequest{
		AttributeKey: r.PathValue("key"),
		Value:        value,
	})
}

func (s *Server) handleListOptions(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, internal.OpOptionList, exdock.ListOptionsRequest{AttributeKey: r.PathValue("key")})
}

func (s *Server) handleRemoveOption(w http.ResponseWriter, r *http.Request) {
	optionID, err := pathInt(r, "option")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.call(w, r, internal.OpOptionRemove, exdock.RemoveOptionRequest{
		AttributeKey: r.PathValue("key"),
		OptionID:     int32(optionID),
	})
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	productID, err := pathInt(r, "product")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var value exdock.Value
	if err := readJSONBody(r, &value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.call(w, r, internal.OpValueSet, exdock.SetValueRequest{
		ProductID:    productID,
		Scope:        scope,
		AttributeKey: r.PathValue("key"),
		Value:        value,
	})
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	productID, err := pathInt(r, "product")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.call(w, r, internal.OpValueGet, exdock.GetValueRequest{
		ProductID:    productID,
		Scope:        scope,
		AttributeKey: r.PathValue("key"),
	})
}

func (s *Server) handleDeleteValue(w http.ResponseWriter, r *http.Request) {
	productID, err := pathInt(r, "product")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.call(w, r, internal.OpValueDelete, exdock.DeleteValueRequest{
		ProductID:    productID,
		Scope:        scope,
		AttributeKey: r.PathValue("key"),
	})
}

func (s *Server) handleResolveValue(w http.ResponseWriter, r *http.Request) {
	productID, err := pathInt(r, "product")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	storeViewID, err := queryInt(r, "storeViewId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.call(w, r, internal.OpValueResolve, exdock.ResolveValueRequest{
		ProductID:    productID,
		AttributeKey: r.PathValue("key"),
		StoreViewID:  storeViewID,
	})
}

func (s *Server) handleMarkDirty(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, internal.OpCacheMarkDirty, exdock.CacheDomainRequest{Domain: r.PathValue("domain")})
}

func (s *Server) handleIsDirty(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, internal.OpCacheIsDirty, exdock.CacheDomainRequest{Domain: r.PathValue("domain")})
}

// handleCacheData serves ?domains=accounts;categories, the storefront's bulk
// cache fetch.
func (s *Server) handleCacheData(w http.ResponseWriter, r *http.Request) {
	domains := r.URL.Query().Get("domains")
	if domains == "" {
		writeError(w, http.StatusBadRequest, "missing domains query parameter")
		return
	}
	s.call(w, r, internal.OpCacheRequest, domains)
}

func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, internal.OpAccountGetAllUsers, nil)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var creation exdock.UserCreation
	if err := readJSONBody(r, &creation); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.call(w, r, internal.OpAccountCreateUser, creation)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("full") == "true" {
		s.call(w, r, internal.OpAccountGetFullUser, userID)
		return
	}
	s.call(w, r, internal.OpAccountGetUserByID, userID)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var user exdock.User
	if err := readJSONBody(r, &user); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	user.UserID = userID
	s.call(w, r, internal.OpAccountUpdateUser, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.call(w, r, internal.OpAccountDeleteUser, userID)
}

func (s *Server) handleGetPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.call(w, r, internal.OpAccountGetPerms, userID)
}

func (s *Server) handleCreatePermissions(w http.ResponseWriter, r *http.Request) {
	s.permissionsCall(w, r, internal.OpAccountCreatePerms)
}

func (s *Server) handleUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	s.permissionsCall(w, r, internal.OpAccountUpdatePerms)
}

func (s *Server) handleDeletePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.call(w, r, internal.OpAccountDeletePerms, userID)
}

func (s *Server) permissionsCall(w http.ResponseWriter, r *http.Request, op string) {
	userID, err := pathInt(r, "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var perms exdock.BackendPermissions
	if err := readJSONBody(r, &perms); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	perms.UserID = userID
	s.call(w, r, op, perms)
}

// call dispatches the operation and translates the outcome into an HTTP reply.
func (s *Server) call(w http.ResponseWriter, r *http.Request, op string, body any) {
	result, err := s.dispatcher.Call(r.Context(), op, body)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, result)
}
