package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/apierr"
	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/api/response"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// respond writes out, or err when set
func respond(w http.ResponseWriter, out any, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	response.OKJSON(w, out)
}

// respondOK writes the shared success body, or err when set
func respondOK(w http.ResponseWriter, err error) {
	respond(w, response.OK, err)
}

// requireStrings reads required string fields in order, stopping at the first failure
func requireStrings(f request.Fields, keys ...string) ([]string, error) {
	out := make([]string, len(keys))
	for i, key := range keys {
		s, err := f.String(key)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
