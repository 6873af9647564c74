package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/services"
)

// CatalogController serves the CRUD routes of one registry
// (customers, drivers or vehicles)
type CatalogController[T any] struct {
	catalog *services.Catalog[T]
}

func NewCatalogController[T any](catalog *services.Catalog[T]) *CatalogController[T] {
	return &CatalogController[T]{catalog: catalog}
}

// List handles GET ?query= plus any filter the registry supports
func (ctl *CatalogController[T]) List(c *gin.Context) {
	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if key != "query" && len(values) > 0 {
			filters[key] = values[0]
		}
	}

	items, err := ctl.catalog.List(c.Request.Context(), c.Query("query"), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (ctl *CatalogController[T]) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	item, err := ctl.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (ctl *CatalogController[T]) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var item T
	if !bindJSON(c, &item) {
		return
	}
	created, err := ctl.catalog.Create(c.Request.Context(), a, &item)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

func (ctl *CatalogController[T]) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var item T
	if !bindJSON(c, &item) {
		return
	}
	updated, err := ctl.catalog.Update(c.Request.Context(), a, id, &item)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, updated)
}

func (ctl *CatalogController[T]) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.catalog.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Registro excluído com sucesso.")
}
