package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// writeData writes a successful envelope with data produced by fn.
// A nil fn omits the data field.
func writeData(w http.ResponseWriter, r *http.Request, status int, message string, fn func(*jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("message")
	e.Str(message)
	if fn != nil {
		e.FieldStart("data")
		fn(e)
	}
	e.ObjEnd()
	write(w, r, status, e.Bytes())
}

// writeFailure writes an error envelope.
func writeFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	write(w, r, status, e.Bytes())
}

func write(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}
