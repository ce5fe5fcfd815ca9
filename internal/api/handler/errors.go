package handler

import (
	"net/http"

	"github.com/mcoot/roomserver/internal/api/apierr"
)

// WriteError maps a domain error to its HTTP status and JSON body
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}
